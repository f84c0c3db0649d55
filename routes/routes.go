package routes

import (
	"github.com/jkor2/lifeof/config"
	"github.com/jkor2/lifeof/controllers"
	"github.com/jkor2/lifeof/middlewares"
	"github.com/jkor2/lifeof/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func SetupRouter(log zerolog.Logger) *gin.Engine {
	r := gin.Default()

	db := config.DB

	entrySvc := services.NewEntryService(db)
	defSvc := services.NewAttributeDefinitionService(db)
	chartsSvc := services.NewChartsService(db)

	hub := services.NewSyncHub()
	authSvc := services.NewWhoopAuthService(db, log)
	client := services.NewWhoopClient(authSvc, log)
	importSvc := services.NewWhoopImportService(db, client, hub, log)

	entryCtl := controllers.NewEntryController(entrySvc)
	defCtl := controllers.NewAttributeDefinitionController(defSvc)
	chartsCtl := controllers.NewChartsController(chartsSvc)
	whoopCtl := controllers.NewWhoopController(authSvc, importSvc)
	rtCtl := controllers.NewRealtimeController(hub)

	// Public auth route
	r.POST("/auth/login", controllers.Login)

	// Read-only routes stay open: this is a single-tenant journal whose
	// public entries feed a public page.
	r.GET("/entries", entryCtl.List)
	r.GET("/entries/:id", entryCtl.Get)
	r.GET("/attribute-definitions", defCtl.List)
	r.GET("/charts/overview", chartsCtl.Overview)
	r.GET("/whoop/status", whoopCtl.Status)
	// OAuth redirect lands here from the browser, so it cannot carry a bearer.
	r.GET("/whoop/callback", whoopCtl.Callback)
	r.GET("/ws/sync", rtCtl.SyncWS)

	// Everything that writes requires the admin token.
	admin := r.Group("/")
	admin.Use(middlewares.AuthMiddleware())
	{
		admin.POST("/entries", entryCtl.Upsert)
		admin.PATCH("/entries/:id/visibility", entryCtl.SetVisibility)
		admin.POST("/entries/:id/notes", entryCtl.AddNote)
		admin.DELETE("/entries/:id", entryCtl.Delete)

		admin.POST("/attribute-definitions", defCtl.Create)
		admin.PUT("/attribute-definitions/:id", defCtl.Update)
		admin.DELETE("/attribute-definitions/:id", defCtl.Delete)

		admin.GET("/whoop/auth", whoopCtl.AuthRedirect)
		admin.GET("/whoop/sync/latest", whoopCtl.SyncLatest)
		admin.POST("/whoop/sync/latest", whoopCtl.SyncLatest)
		admin.POST("/whoop/sync/full", whoopCtl.SyncFull)
	}

	return r
}
