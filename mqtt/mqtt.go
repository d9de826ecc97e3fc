/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nethesis/audit-tracker-web/configuration"
	"github.com/nethesis/audit-tracker-web/logs"
	"github.com/nethesis/audit-tracker-web/models"
)

// MessageHandler turns a raw payload into an event to forward, or returns
// false to drop it.
type MessageHandler func(topic string, payload []byte) (models.Event, bool)

var (
	client        mqtt.Client
	eventsChannel chan models.Event
	handlers      map[string]MessageHandler
	handlersMutex sync.RWMutex
)

// IsEnabled reports whether a broker is configured and the client exists.
func IsEnabled() bool {
	return client != nil
}

// Init initializes the MQTT client and returns the channel on which events
// received from the broker are delivered.
func Init() chan models.Event {
	if !configuration.Config.MQTTEnabled {
		logs.Log("[INFO][MQTT] MQTT disabled - missing broker host")
		return nil
	}

	eventsChannel = make(chan models.Event, 100)
	handlersMutex.Lock()
	handlers = map[string]MessageHandler{
		configuration.Config.MQTTTopic: HandleCapaEvent,
	}
	handlersMutex.Unlock()

	// MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%s", configuration.Config.MQTTHost, configuration.Config.MQTTPort))
	opts.SetClientID("audit-tracker-web-" + fmt.Sprint(time.Now().UnixNano()))
	opts.SetUsername(configuration.Config.MQTTUsername)
	opts.SetPassword(configuration.Config.MQTTPassword)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logs.Logf("[WARNING][MQTT] Connection lost: %v", err)
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logs.Log("[INFO][MQTT] Connected to MQTT broker")

		// re-subscribe after every (re)connection
		handlersMutex.RLock()
		topics := make([]string, 0, len(handlers))
		for topic := range handlers {
			topics = append(topics, topic)
		}
		handlersMutex.RUnlock()

		for _, topic := range topics {
			subscribeToTopic(topic)
		}
	})

	client = mqtt.NewClient(opts)

	// connect in background, the client retries on its own
	token := client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			logs.Logf("[ERROR][MQTT] Failed to connect to MQTT broker: %v", token.Error())
			logs.Log("[INFO][MQTT] Will retry connection in background...")
		}
	}()

	logs.Log("[INFO][MQTT] MQTT client initialized - connecting in background")
	return eventsChannel
}

func subscribeToTopic(topic string) error {
	token := client.Subscribe(topic, 1, func(client mqtt.Client, msg mqtt.Message) {
		handleMessage(msg.Topic(), msg.Payload())
	})

	if token.Wait() && token.Error() != nil {
		logs.Logf("[ERROR][MQTT] Failed to subscribe to %s: %v", topic, token.Error())
		return token.Error()
	}

	logs.Logf("[INFO][MQTT] Subscribed to topic: %s", topic)
	return nil
}

// handleMessage routes messages to appropriate handlers
func handleMessage(topic string, payload []byte) {
	handlersMutex.RLock()
	handler, exists := handlers[topic]
	handlersMutex.RUnlock()
	if !exists {
		logs.Logf("[WARNING][MQTT] No handler found for topic: %s", topic)
		return
	}

	event, forward := handler(topic, payload)
	if !forward {
		return
	}

	select {
	case eventsChannel <- event:
	default:
		logs.Logf("[ERROR][MQTT] Events channel full, dropping message from topic: %s", topic)
	}
}

// HandleCapaEvent decodes a capa-created event published by any instance.
func HandleCapaEvent(topic string, payload []byte) (models.Event, bool) {
	var event models.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		logs.Log("[ERROR][MQTT] Failed to parse event from " + topic + ": " + err.Error())
		return models.Event{}, false
	}

	if event.Type != models.EventCapaCreated || event.Data.FindingID.IsZero() {
		logs.Log("[WARNING][MQTT] Ignoring unexpected event on " + topic)
		return models.Event{}, false
	}

	return event, true
}

// Publish sends a JSON payload to a topic.
func Publish(topic string, payload interface{}) error {
	if client == nil || !client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	token := client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// PublishCapaCreated announces a created CAPA on the configured topic.
func PublishCapaCreated(submission models.CapaSubmission) error {
	return Publish(configuration.Config.MQTTTopic, models.Event{
		Type:      models.EventCapaCreated,
		Data:      submission,
		Timestamp: time.Now().UTC(),
	})
}

// Close closes the MQTT client
func Close() {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		logs.Log("[INFO][MQTT] MQTT client disconnected")
	}
	client = nil
	if eventsChannel != nil {
		close(eventsChannel)
		eventsChannel = nil
	}
}
