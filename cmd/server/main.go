package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yishak-cs/themenu/internal/database"
	"github.com/yishak-cs/themenu/internal/handlers"
	"github.com/yishak-cs/themenu/internal/realtime"
	"github.com/yishak-cs/themenu/internal/services"
	"github.com/yishak-cs/themenu/pkg/helper"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	config := helper.LoadConfigFromEnv()
	logger := helper.NewLogger(config.LogLevel, config.LogFormat, os.Stdout)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Warn("no .env file loaded", "error", envErr)
	}
	if config.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, register and login will fail")
	}

	// Relational store
	db, err := database.OpenSQL(config.SQL, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("failed to access connection pool", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Optional meal graph
	var (
		runner    database.CypherRunner
		projector *database.GraphProjector
		mealGraph services.MealGraph
		rebuilder services.GraphRebuilder
	)
	var neo4jClient *database.Neo4jClient
	if config.Neo4j.Enabled() {
		neo4jClient, err = database.NewNeo4jClient(context.Background(), config.Neo4j, logger)
		if err != nil {
			logger.Error("failed to connect to Neo4j", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := neo4jClient.Close(ctx); err != nil {
				logger.Warn("error closing Neo4j connection", "error", err)
			}
		}()
		runner = neo4jClient
		projector = database.NewGraphProjector(neo4jClient, logger)
		mealGraph, rebuilder = projector, projector
	} else {
		logger.Info("NEO4J_URI not set, meal graph insights disabled")
	}

	// Optional photo storage
	var photoStore services.PhotoStore
	if config.S3.Enabled() {
		store, err := services.NewS3PhotoStore(context.Background(), config.S3)
		if err != nil {
			logger.Error("failed to configure S3", "error", err)
			os.Exit(1)
		}
		photoStore = store
	} else {
		logger.Info("S3_BUCKET not set, dish photo upload disabled")
	}

	// Initialize services
	hub := realtime.NewHub(logger)
	reconciler := services.NewGroceryReconciler(logger)
	dishes := services.NewDishService(db, reconciler, hub, mealGraph, logger)
	graphAdmin := services.NewGraphAdmin(db, rebuilder)
	svc := handlers.Services{
		Auth:        services.NewAuthService(db, config.JWTSecret),
		Calendar:    services.NewCalendarService(db),
		Meals:       services.NewMealService(db, reconciler, hub, mealGraph, logger),
		Courses:     services.NewCourseService(db, reconciler, hub, mealGraph, logger),
		Dishes:      dishes,
		Tags:        services.NewTagService(db),
		Ingredients: services.NewIngredientService(db),
		Grocery:     services.NewGroceryListService(db, hub),
		Reviews:     services.NewReviewService(db),
		Teams:       services.NewTeamService(db),
		Dump:        services.NewDumpService(db),
		Importer:    services.NewRecipeImporter(nil),
		Photos:      services.NewPhotoService(photoStore, dishes),
		Insights:    services.NewInsightService(runner, logger),
		Graph:       graphAdmin,
	}

	if projector != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if meals, err := graphAdmin.Rebuild(ctx); err != nil {
			logger.Warn("meal graph rebuild failed", "error", err)
		} else if status, err := projector.Status(ctx); err == nil {
			logger.Info("meal graph ready", "meals", meals, "status", status)
		}
		cancel()
	}

	// Initialize API handlers
	apiHandler := handlers.NewAPIHandler(svc, hub, logger)
	apiHandler.AddHealthCheck("database", sqlDB.PingContext)
	if neo4jClient != nil {
		apiHandler.AddHealthCheck("neo4j", neo4jClient.Health)
	}

	// Setup Gin router
	if config.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestLogger(logger), handlers.CORS())
	apiHandler.SetupRoutes(router)

	// Handle the single page app - catch all other routes and serve index.html
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.File("./web/static/index.html")
	})

	// Create server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", config.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.CloseAll()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited properly")
}
