package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-pos/internal/cache"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/handler"
	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/middleware"
	"restaurant-pos/internal/model"
	"restaurant-pos/internal/repository"
	"restaurant-pos/internal/service"
	"restaurant-pos/internal/ws"
	"restaurant-pos/pkg/database"
	"restaurant-pos/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	// 1. Load Env
	envErr := godotenv.Load()
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	log := logger.Get()
	if envErr != nil {
		log.Info("No .env file found, using process environment")
	}

	// Quantities and prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// 3. Optional redis: dashboard cache and the bulk-price lock
	deps := service.Deps{Log: log}
	if cfg.RedisURL != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, running without dashboard cache and distributed lock")
		} else {
			defer rdb.Close()
			deps.Cache = cache.NewRedisCache(rdb, cfg.DashboardCacheTTL)
			deps.Locker = lock.NewRedisLocker(rdb)
		}
	}

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub(log)
	go wsHub.Run(ctx)
	deps.Notifier = wsHub

	// 5. Dependency Injection (Wiring Layers)
	ingredientRepo := repository.NewIngredientRepo(db)
	recipeRepo := repository.NewRecipeRepo(db)
	productionRepo := repository.NewProductionRepo(db)
	productRepo := repository.NewProductRepo(db)
	saleRepo := repository.NewSaleRepo(db)

	accounts, err := model.ParseAccounts(cfg.AuthAccounts)
	if err != nil {
		log.WithError(err).Fatal("Invalid AUTH_ACCOUNTS")
	}
	if cfg.AuthDisabled {
		log.Warn("Authentication disabled, every request runs as admin")
	} else if len(accounts) == 0 {
		log.Warn("No operator accounts configured, tokens cannot be issued")
	}

	handlers := handler.Handlers{
		Auth:        handler.NewAuthHandler(service.NewAuthService(accounts, []byte(cfg.JWTSecret), cfg.JWTTTL, log)),
		Ingredients: handler.NewIngredientHandler(service.NewIngredientService(ingredientRepo, db, deps)),
		Recipes:     handler.NewRecipeHandler(service.NewRecipeService(recipeRepo, ingredientRepo, productionRepo, db, deps)),
		Products:    handler.NewProductHandler(service.NewProductService(productRepo, recipeRepo, saleRepo, db, deps)),
		Sales:       handler.NewSaleHandler(service.NewSaleService(saleRepo, productRepo, recipeRepo, db, deps)),
		Reports:     handler.NewReportHandler(service.NewReportService(saleRepo, deps)),
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Restaurant POS v1.0",
	})

	// Middleware
	app.Use(fiberlogger.New()) // Logging request
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS
	app.Use("/api", limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests, please try again later"})
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "ws_clients": wsHub.ClientCount()})
	})

	// 7. Routes
	handler.RegisterRoutes(app, handlers, middleware.RequireAuth([]byte(cfg.JWTSecret), cfg.AuthDisabled))

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() {
			select {
			case wsHub.Unregister <- c:
			case <-ctx.Done():
			}
		}()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Panic("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	stop()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Server exited")
}
