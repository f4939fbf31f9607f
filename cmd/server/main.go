package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mscykler/storefront/internal/cart"
	"github.com/mscykler/storefront/internal/catalog"
	"github.com/mscykler/storefront/internal/checkout"
	"github.com/mscykler/storefront/internal/domain"
	h "github.com/mscykler/storefront/internal/http"
	"github.com/mscykler/storefront/internal/orders"
	"github.com/mscykler/storefront/internal/orders/publisher"
	"github.com/mscykler/storefront/internal/payment"
)

type Config struct {
	HTTPPort              string
	StorefrontOrigin      string
	AdminToken            string
	CatalogDBPath         string
	CatalogMigrationsPath string
	MongoURI              string
	MongoDBName           string
	RedisAddr             string
	RedisPassword         string
	PostgresHost          string
	PostgresPort          int
	PostgresUser          string
	PostgresPassword      string
	PostgresDBName        string
	OrdersMigrationsPath  string
	KafkaBrokers          []string
	StripeSecretKey       string
	StripeAPIBase         string
	RequestTimeout        time.Duration
	ShutdownTimeout       time.Duration
}

func loadConfig() *Config {
	pgPort, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		log.Fatalf("invalid POSTGRES_PORT: %v", err)
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		StorefrontOrigin:      getEnv("STOREFRONT_ORIGIN", "http://localhost:5173"),
		AdminToken:            os.Getenv("ADMIN_TOKEN"),
		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "./internal/catalog/catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./internal/catalog/migrations"),
		MongoURI:              getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:           getEnv("MONGO_DB_NAME", "storefront"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		PostgresHost:          getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:          pgPort,
		PostgresUser:          getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:      getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDBName:        getEnv("POSTGRES_DB", "storefront"),
		OrdersMigrationsPath:  getEnv("ORDERS_MIGRATIONS_PATH", "./internal/orders/migrations"),
		KafkaBrokers:          brokers,
		StripeSecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
		StripeAPIBase:         os.Getenv("STRIPE_API_BASE"),
		RequestTimeout:        30 * time.Second,
		ShutdownTimeout:       10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	if cfg.StripeSecretKey == "" {
		log.Fatal("STRIPE_SECRET_KEY is required")
	}

	// Catalog store
	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		log.Fatalf("Failed to run catalog migrations: %v", err)
	}
	log.Println("Catalog migrations completed")

	// Cart store: MongoDB durable copy with a Redis cache in front
	ctx := context.Background()
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	cartRepo := cart.NewMongoRepository(mongoDB)
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Println("Redis ping succeeded")

	cartService := cart.NewService(cartRepo, cart.NewRedisCache(redisClient))

	// Orders store
	ordersCred := &orders.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDBName,
		MigrationsDirPath: cfg.OrdersMigrationsPath,
	}
	ordersRepo, err := orders.NewRepository(ordersCred)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer ordersRepo.Close()
	if err := ordersRepo.RunMigrations(ordersCred); err != nil {
		log.Fatalf("Failed to run orders migrations: %v", err)
	}
	log.Println("Orders migrations completed")

	// Outbox poller publishes order events when brokers are configured
	pollerCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(ordersRepo, cfg.KafkaBrokers...)
		go poller.Run(pollerCtx)
		log.Printf("Outbox poller publishing to %v", cfg.KafkaBrokers)
	}

	// Payment provider
	var paymentOpts []payment.Option
	if cfg.StripeAPIBase != "" {
		paymentOpts = append(paymentOpts, payment.WithBaseURL(cfg.StripeAPIBase))
	}
	paymentClient := payment.NewClient(cfg.StripeSecretKey, paymentOpts...)

	catalogService := catalog.NewService(catalogRepo)
	checkoutService := checkout.NewService(paymentClient, ordersRepo)

	catalogHandler := h.NewCatalogHandler(catalogService, cfg.RequestTimeout)
	cartHandler := h.NewCartHandler(cartService, catalogService, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(checkoutService, cartService, ordersRepo, cfg.StorefrontOrigin, cfg.RequestTimeout)
	adminHandler := h.NewAdminHandler(catalogService, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.SessionMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// The payment endpoint answers every method itself so non-POST requests
	// get a proper 405 with an Allow header.
	r.HandleFunc("/api/create-checkout-session", checkoutHandler.CreateSession)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", catalogHandler.Search)

		r.Route("/bikes", func(r chi.Router) {
			r.Get("/", catalogHandler.List(domain.ProductTypeBike))
			r.Get("/categories", catalogHandler.Categories(domain.ProductTypeBike))
			r.Get("/{id}", catalogHandler.Get(domain.ProductTypeBike))
			r.Get("/{id}/related", catalogHandler.Related(domain.ProductTypeBike))
		})
		r.Route("/parts", func(r chi.Router) {
			r.Get("/", catalogHandler.List(domain.ProductTypePart))
			r.Get("/categories", catalogHandler.Categories(domain.ProductTypePart))
			r.Get("/{id}", catalogHandler.Get(domain.ProductTypePart))
			r.Get("/{id}/related", catalogHandler.Related(domain.ProductTypePart))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})

		r.Get("/orders/success", checkoutHandler.OrderSuccess)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.AdminAuthMiddleware(cfg.AdminToken))
			r.Post("/{product_type}", adminHandler.Save)
			r.Delete("/{product_type}/{id}", adminHandler.Delete)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront server starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := mongoDB.Client().Disconnect(ctx); err != nil {
		log.Printf("mongo disconnect error: %v", err)
	}

	log.Println("server exited")
}
