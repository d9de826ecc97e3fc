/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package main

import (
	"io"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/nethesis/audit-tracker-web/backend"
	"github.com/nethesis/audit-tracker-web/configuration"
	"github.com/nethesis/audit-tracker-web/db"
	"github.com/nethesis/audit-tracker-web/logs"
	"github.com/nethesis/audit-tracker-web/methods"
	"github.com/nethesis/audit-tracker-web/middleware"
	"github.com/nethesis/audit-tracker-web/mqtt"
	"github.com/nethesis/audit-tracker-web/render"
	"github.com/nethesis/audit-tracker-web/socket"
	"github.com/nethesis/audit-tracker-web/store"
)

func main() {
	// init logger
	logs.Init("audit-tracker-web")

	// init configuration
	configuration.Init()

	// init store
	store.ViewerSessionInit()

	// init backend client
	methods.InitBackend(backend.NewFromConfig())

	// init submission journal, optional
	initJournal()

	// init capa event fanout, optional
	if events := mqtt.Init(); events != nil {
		go socket.ForwardEvents(events)
	}

	// create router
	router := createRouter()

	// create cron to purge idle viewer sessions
	c := cron.New()
	c.AddFunc("@every 5m", purgeViewerSessions)
	c.Start()

	// run server
	router.Run(configuration.Config.ListenAddress)
}

func initJournal() {
	if !configuration.IsJournalConfigured() {
		logs.Log("[INFO][JOURNAL] MariaDB not configured, submission journal disabled")
		return
	}

	if err := db.Init(); err != nil {
		logs.Log("[ERROR][JOURNAL] " + errors.Wrap(err, "submission journal disabled").Error())
	}
}

func purgeViewerSessions() {
	if purged := store.PurgeExpiredSessions(configuration.Config.SessionTTL); purged > 0 {
		logs.Logf("[INFO][SESSION] Purged %d idle viewer sessions", purged)
	}
}

func createRouter() *gin.Engine {
	// disable log to stdout when running in release mode
	if gin.Mode() == gin.ReleaseMode {
		gin.DefaultWriter = io.Discard
	}

	// init routers
	router := gin.New()
	router.RedirectTrailingSlash = false

	// route on the escaped path so ids holding a slash stay one segment
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(
		gin.LoggerWithWriter(gin.DefaultWriter),
		gin.Recovery(),
	)

	// add default compression, websocket upgrades excluded
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws"})))

	// cors configuration only in debug mode GIN_MODE=debug (default)
	if gin.Mode() == gin.DebugMode {
		// gin gonic cors conf
		corsConf := cors.DefaultConfig()
		corsConf.AllowHeaders = []string{"Content-Type", "Accept", "HX-Request", "HX-Target", "HX-Trigger", "HX-Current-URL"}
		corsConf.ExposeHeaders = []string{"HX-Trigger"}
		if len(configuration.Config.CORSOrigins) > 0 {
			corsConf.AllowOrigins = configuration.Config.CORSOrigins
		} else {
			corsConf.AllowAllOrigins = true
		}
		router.Use(cors.New(corsConf))
	}

	// page and fragment templates
	router.SetHTMLTemplate(render.MustTemplates())

	// process health (no viewer session)
	router.GET("/health", methods.Health)

	// define ui group
	ui := router.Group("/", middleware.ViewerSession())
	{
		ui.GET("/", methods.Index)
		ui.GET("/ui/audits", methods.AuditsFragment)
		ui.GET("/ui/audits/:auditId/findings", methods.FindingsFragment)
		ui.POST("/ui/findings/:findingId/capas", methods.SubmitCapa)
		ui.GET("/ui/findings/:findingId/capas", methods.CapasFragment)

		// capa notices pushed to open pages
		ui.GET("/ws", socket.WsHandler)
	}

	// define json api group (no viewer session)
	api := router.Group("/api")
	{
		api.GET("/audits", methods.GetAudits)
		api.GET("/findings/:auditId", methods.GetFindings)
		api.GET("/capas/:findingId", methods.GetCapas)
		api.POST("/capas", methods.PostCapa)
		api.GET("/journal", methods.GetJournal)
	}

	// favicon requests should not reach the backend proxy
	router.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	// handle missing endpoint, /backend/* is forwarded
	router.NoRoute(methods.NotFound)

	return router
}
