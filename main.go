package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"deals-portal/internal/access"
	bidding "deals-portal/internal/biddingService"
	"deals-portal/internal/catalog"
	"deals-portal/internal/config"
	"deals-portal/internal/events"
	"deals-portal/internal/notification"
	"deals-portal/internal/objectstore"
	"deals-portal/internal/repository"
	"deals-portal/internal/server"
	"deals-portal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("invalid configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	images, localImages := openImageStore(ctx, cfg)

	sender := openSender(cfg)
	dispatcher := notification.NewDispatcher(sender, notification.Config{
		From:    notification.Address{Name: cfg.EmailFromName, Email: cfg.EmailFromAddress},
		Brand:   cfg.EmailBrand,
		Portal:  cfg.PortalURL,
		Timeout: cfg.EmailTimeout,
	})

	publisher, closeBus := openPublisher(ctx, cfg, dispatcher)

	directory := access.NewDirectory(store, []byte(cfg.JWTSecret))
	biddingSvc := bidding.NewBiddingService(store, store, publisher, bidding.Policy{EnforceCloseDate: cfg.EnforceCloseDate})
	catalogSvc := catalog.NewCatalogService(store, images)

	router := server.SetupRouter(server.Services{
		Bidding:   biddingSvc,
		Catalog:   catalogSvc,
		Directory: directory,
		Auth:      directory,

		LocalImages: localImages,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Info("starting deals portal server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("server shutdown failed", map[string]any{"error": err.Error()})
	}
	closeBus()
}

// openStore connects MongoDB when MONGO_URI is set, otherwise keeps everything in memory
func openStore(ctx context.Context, cfg config.Config) (repository.DealsDB, func()) {
	if cfg.MongoURI == "" {
		utils.Warn("MONGO_URI not set, using in-memory store", nil)
		return repository.NewMemoryRepo(), func() {}
	}

	repo, err := repository.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		utils.Fatal("failed to connect to MongoDB", map[string]any{"error": err.Error()})
	}
	utils.Info("connected to MongoDB", map[string]any{"database": cfg.MongoDatabase})
	return repo, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			utils.Warn("failed to close MongoDB client", map[string]any{"error": err.Error()})
		}
	}
}

// openImageStore uses S3 when S3_BUCKET is set. The in-memory fallback is
// also returned so the router can serve it.
func openImageStore(ctx context.Context, cfg config.Config) (objectstore.ImageStore, *objectstore.MemoryStore) {
	if cfg.S3Bucket == "" {
		utils.Warn("S3_BUCKET not set, lot images are kept in memory", nil)
		local := objectstore.NewMemoryStore(strings.TrimSuffix(cfg.PortalURL, "/") + "/images")
		return local, local
	}

	store, err := objectstore.NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket)
	if err != nil {
		utils.Fatal("failed to configure S3", map[string]any{"error": err.Error()})
	}
	return store, nil
}

func openSender(cfg config.Config) notification.EmailSender {
	switch cfg.EmailProvider {
	case config.EmailProviderSendGrid:
		sender, err := notification.NewSendGridSender(cfg.SendGridAPIKey)
		if err != nil {
			utils.Fatal("failed to configure SendGrid", map[string]any{"error": err.Error()})
		}
		return sender
	case config.EmailProviderSMTP:
		sender, err := notification.NewSMTPSender(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort), cfg.SMTPUser, cfg.SMTPPass)
		if err != nil {
			utils.Fatal("failed to configure SMTP", map[string]any{"error": err.Error()})
		}
		return sender
	default:
		return notification.LogSender{}
	}
}

// openPublisher queues events in Redis when REDIS_URL is set and consumes
// them in this process; otherwise events go through an in-process bus.
func openPublisher(ctx context.Context, cfg config.Config, handler events.Handler) (events.Publisher, func()) {
	if cfg.RedisURL == "" {
		bus := events.NewAsyncBus(handler, cfg.NotifyWorkers, cfg.NotifyQueueSize)
		return bus, bus.Close
	}

	client, err := events.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		utils.Fatal("failed to connect to Redis", map[string]any{"error": err.Error()})
	}
	queue := events.NewRedisQueue(client, cfg.RedisQueue)

	consumeCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, cfg.NotifyWorkers)
	for i := 0; i < cfg.NotifyWorkers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			queue.Consume(consumeCtx, handler)
		}()
	}
	utils.Info("consuming bid events from Redis", map[string]any{"queue": cfg.RedisQueue, "workers": cfg.NotifyWorkers})

	return queue, func() {
		cancel()
		for i := 0; i < cfg.NotifyWorkers; i++ {
			<-done
		}
		if err := client.Close(); err != nil {
			utils.Warn("failed to close Redis client", map[string]any{"error": err.Error()})
		}
	}
}
