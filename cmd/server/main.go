package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/medstore/api/internal/config"
	"github.com/medstore/api/internal/es"
	"github.com/medstore/api/internal/handlers"
	"github.com/medstore/api/internal/handlers/cart"
	"github.com/medstore/api/internal/handlers/order"
	"github.com/medstore/api/internal/handlers/prescription"
	"github.com/medstore/api/internal/logging"
	"github.com/medstore/api/internal/mykafka"
	"github.com/medstore/api/internal/notify"
	"github.com/medstore/api/internal/paygate"
	"github.com/medstore/api/internal/service"
	"github.com/medstore/api/internal/storage"
	httpserver "github.com/medstore/api/internal/transport/http"
)

func main() {
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	brokers := []string{configuration.KAFKA_ADDRESS}
	topics := []string{"user_events", "cart_events", "order_events", "prescription_events", "product_events"}
	prod, err := mykafka.NewProducer(brokers, topics)
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(configuration.CLOUDINARY_URL)
	if err != nil {
		log.Fatal(err)
	}

	gateway := paygate.NewClient(configuration.GATEWAY_URL, configuration.GATEWAY_KEY_ID, configuration.GATEWAY_SECRET)
	notifier := notify.NewClient(configuration.NOTIFY_URL, configuration.NOTIFY_API_KEY, configuration.NOTIFY_FROM)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		DB:             db,
		AuthHandler:    &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		ProductHandler: &handlers.ProductHandler{DB: db, Producer: prod, Uploader: store},
		CartHandler:    &cart.CartHandler{DB: db, Producer: prod},
		OrderHandler:   &order.OrderHandler{DB: db, Producer: prod, Uploader: store, Gateway: gateway},
		PrescriptionHandler: &prescription.ReviewHandler{
			DB:       db,
			Producer: prod,
			Notifier: notifier,
			Signer:   store,
			Log:      logger,
		},
		ServiceHandler: &service.TokenService{DB: db, RefreshSecret: refreshSecret, JWTSecret: jwtSecret},
		SearchHandler:  &handlers.SearchHandler{ES: esClient, Index: "product"},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
