/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package configuration

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Configuration struct {
	ListenAddress  string        `json:"listen_address"`
	BaseURL        string        `json:"base_url"`
	BackendTimeout time.Duration `json:"backend_timeout"`
	SessionTTL     time.Duration `json:"session_ttl"`
	CORSOrigins    []string      `json:"cors_origins"`

	MariaDBHost     string `json:"mariadb_host"`
	MariaDBPort     string `json:"mariadb_port"`
	MariaDBUser     string `json:"mariadb_user"`
	MariaDBPassword string `json:"mariadb_password"`
	MariaDBDatabase string `json:"mariadb_database"`

	MQTTEnabled  bool   `json:"mqtt_enabled"`
	MQTTHost     string `json:"mqtt_host"`
	MQTTPort     string `json:"mqtt_port"`
	MQTTUsername string `json:"mqtt_username"`
	MQTTPassword string `json:"mqtt_password"`
	MQTTTopic    string `json:"mqtt_topic"`
}

const envPrefix = "AUDIT_TRACKER_"

var Config = Configuration{}

func Init() {
	// listen address of the web frontend
	if os.Getenv(envPrefix+"LISTEN_ADDRESS") != "" {
		Config.ListenAddress = os.Getenv(envPrefix + "LISTEN_ADDRESS")
	} else {
		Config.ListenAddress = "127.0.0.1:8080"
	}

	// origin of the audit backend, required
	if os.Getenv(envPrefix+"BASE_URL") != "" {
		Config.BaseURL = strings.TrimRight(os.Getenv(envPrefix+"BASE_URL"), "/")
	} else {
		os.Stderr.WriteString(envPrefix + "BASE_URL variable is empty. ")
		os.Exit(1)
	}

	// backend request timeout in seconds
	Config.BackendTimeout = time.Duration(intFromEnv("BACKEND_TIMEOUT", 10)) * time.Second

	// idle viewer sessions are purged after this many minutes
	Config.SessionTTL = time.Duration(intFromEnv("SESSION_TTL", 60)) * time.Minute

	// allowed origins for the JSON API in debug mode
	if os.Getenv(envPrefix+"CORS_ORIGINS") != "" {
		Config.CORSOrigins = splitList(os.Getenv(envPrefix + "CORS_ORIGINS"))
	} else {
		Config.CORSOrigins = nil
	}

	// submission journal database, optional
	Config.MariaDBHost = os.Getenv(envPrefix + "MARIADB_HOST")
	if os.Getenv(envPrefix+"MARIADB_PORT") != "" {
		Config.MariaDBPort = os.Getenv(envPrefix + "MARIADB_PORT")
	} else {
		Config.MariaDBPort = "3306"
	}
	Config.MariaDBUser = os.Getenv(envPrefix + "MARIADB_USER")
	Config.MariaDBPassword = os.Getenv(envPrefix + "MARIADB_PASSWORD")
	if os.Getenv(envPrefix+"MARIADB_DATABASE") != "" {
		Config.MariaDBDatabase = os.Getenv(envPrefix + "MARIADB_DATABASE")
	} else {
		Config.MariaDBDatabase = "audit_tracker"
	}

	// capa event broker, optional
	Config.MQTTHost = os.Getenv(envPrefix + "MQTT_HOST")
	if os.Getenv(envPrefix+"MQTT_PORT") != "" {
		Config.MQTTPort = os.Getenv(envPrefix + "MQTT_PORT")
	} else {
		Config.MQTTPort = "1883"
	}
	Config.MQTTUsername = os.Getenv(envPrefix + "MQTT_USERNAME")
	Config.MQTTPassword = os.Getenv(envPrefix + "MQTT_PASSWORD")
	if os.Getenv(envPrefix+"MQTT_TOPIC") != "" {
		Config.MQTTTopic = os.Getenv(envPrefix + "MQTT_TOPIC")
	} else {
		Config.MQTTTopic = "audit-tracker/capa/created"
	}
	Config.MQTTEnabled = Config.MQTTHost != ""
}

// IsJournalConfigured reports whether the submission journal database is set.
func IsJournalConfigured() bool {
	return Config.MariaDBHost != "" && Config.MariaDBUser != "" && Config.MariaDBDatabase != ""
}

func intFromEnv(name string, fallback int) int {
	value := os.Getenv(envPrefix + name)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		os.Stderr.WriteString(envPrefix + name + " is not a positive integer, using default. ")
		return fallback
	}

	return parsed
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
