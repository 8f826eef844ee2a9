package main

import (
	"fmt"
	"strconv"

	"roadwatch-service/config"
	"roadwatch-service/database"
	"roadwatch-service/events"
	"roadwatch-service/handlers"
	"roadwatch-service/middleware"
	"roadwatch-service/utils"
	"roadwatch-service/version"
	ws "roadwatch-service/websocket"

	"github.com/apex/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

const (
	EndPointHealth             = "/health"
	EndPointSubmitReport       = "/reports/submit"
	EndPointUpdateReportStatus = "/reports/:reportId/status"
	EndPointGetLocations       = "/locations"
	EndPointLocationsGeoJSON   = "/locations/geojson"
	EndPointGetMap             = "/map"
	EndPointAssignments        = "/assignments"
	EndPointBatchAssign        = "/assignments/batch"
	EndPointUpdateAssignment   = "/assignments/:id"
	EndPointVerifyLocation     = "/verify/:locationId"
	EndPointRejectVerification = "/verify/:locationId/reject"
	EndPointBatchVerify        = "/verify/batch"
	EndPointContractors        = "/contractors"
	EndPointListenHotspots     = "/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Info("Starting the roadwatch service...")

	// Connect to database
	db, err := utils.DBConnect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize database schema
	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	// Initialize services
	reportsService := database.NewReportsService(db)
	locationsService := database.NewLocationsService(db)
	assignmentsService := database.NewAssignmentsService(db)
	contractorsService := database.NewContractorsService(db)

	// Event publishing is optional: enabled only when a broker is configured.
	var publisher *events.Publisher
	if cfg.AMQPUrl != "" {
		publisher, err = events.NewPublisher(cfg.AMQPUrl, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
		log.Infof("Hotspot events will be published to exchange %s", cfg.AMQPExchange)
	} else {
		log.Info("AMQP_URL not set, event publishing disabled")
	}

	// Start the dashboard broadcast hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize handlers
	handler := handlers.NewHandler(reportsService, locationsService,
		assignmentsService, contractorsService, hub, publisher)

	// Setup router
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v3" + EndPointListenHotspots})))

	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, version.Get("roadwatch-service"))
	})

	// Register health endpoint (outside API group)
	router.GET(EndPointHealth, handler.HealthCheck)

	// Create API v3 router group
	apiV3 := router.Group("/api/v3")
	{
		apiV3.POST(EndPointSubmitReport, middleware.OptionalAuth(cfg), handler.SubmitReport)
		apiV3.PATCH(EndPointUpdateReportStatus, middleware.RequireAdmin(cfg), handler.UpdateReportStatus)
		apiV3.GET(EndPointGetLocations, handler.GetLocations)
		apiV3.GET(EndPointLocationsGeoJSON, handler.GetLocationsGeoJSON)
		apiV3.GET(EndPointGetMap, handler.GetMap)
		apiV3.POST(EndPointAssignments, middleware.RequireAdmin(cfg), handler.CreateAssignment)
		apiV3.POST(EndPointBatchAssign, middleware.RequireAdmin(cfg), handler.BatchAssign)
		apiV3.PATCH(EndPointUpdateAssignment, middleware.RequireAuth(cfg), handler.UpdateAssignment)
		apiV3.POST(EndPointVerifyLocation, middleware.RequireAdmin(cfg), handler.VerifyLocation)
		apiV3.POST(EndPointRejectVerification, middleware.RequireAdmin(cfg), handler.RejectVerification)
		apiV3.POST(EndPointBatchVerify, middleware.RequireAdmin(cfg), handler.BatchVerify)
		apiV3.POST(EndPointContractors, middleware.RequireAdmin(cfg), handler.CreateContractor)
		apiV3.GET(EndPointContractors, handler.GetContractors)
		apiV3.GET(EndPointListenHotspots, handler.ListenHotspots)
	}

	// Get server port from config
	serverPort, err := strconv.Atoi(cfg.Port)
	if err != nil {
		log.Fatalf("Invalid PORT configuration: %v", err)
	}

	// Start server
	log.Infof("Roadwatch service starting on port %d", serverPort)
	if err := router.Run(fmt.Sprintf(":%d", serverPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
