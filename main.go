package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"studx/auth"
	"studx/config"
	"studx/database"
	"studx/handlers"
	"studx/logger"
	"studx/mailer"
	"studx/media"
	"studx/messaging"
	"studx/middleware"
	"studx/notify"
	"studx/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().Msg("starting StudX API")

	ctx := context.Background()

	db, err := connectWithRetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	redisClient, err := auth.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	users := database.NewUserStore(db)
	conversations := database.NewConversationStore(db)
	messages := database.NewMessageStore(db)
	pushSubs := database.NewPushSubscriptionStore(db)

	var mail mailer.Mailer
	if cfg.SMTPConfigured() {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.OTPTTL.String())
	} else {
		log.Warn().Msg("SMTP credentials missing, verification codes will only be logged")
		mail = mailer.NewLogMailer(log)
	}

	authSvc := auth.NewService(users, auth.NewRedisOTPStore(redisClient), mail, auth.Options{
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: cfg.TokenTTL,
		OTPTTL:   cfg.OTPTTL,
		Logger:   log,
	})

	var notifier messaging.Notifier
	var pusher *notify.WebPush
	if cfg.PushEnabled {
		pusher = notify.NewWebPush(pushSubs, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber, log)
		notifier = pusher
		log.Info().Msg("web push notifications enabled")
	}

	msgSvc := messaging.NewService(conversations, messages, users, messaging.Options{
		Location:         cfg.Location(),
		MaxMessageLength: cfg.MaxMessageLength,
		Notifier:         notifier,
		Logger:           log,
	})

	var uploader handlers.AvatarUploader
	if cld, err := media.NewCloudinaryUploader(cfg.CloudinaryURL); err == nil {
		uploader = cld
	} else if !errors.Is(err, media.ErrNotConfigured) {
		return err
	} else {
		log.Warn().Msg("CLOUDINARY_URL not set, avatar uploads disabled")
	}

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := routes.SetupRouter(routes.Deps{
		Logger:        log,
		JWTSecret:     []byte(cfg.JWTSecret),
		CORSOrigins:   cfg.CORSOrigins,
		RateLimiter:   middleware.NewIPRateLimiter(cfg.RateLimitPerMinute),
		Database:      db,
		Auth:          handlers.NewAuthHandler(authSvc, log, cfg.RequestTimeout),
		Users:         handlers.NewUserHandler(users, uploader, log, cfg.RequestTimeout),
		Conversations: handlers.NewConversationHandler(msgSvc, log, cfg.RequestTimeout),
		Messages:      handlers.NewMessageHandler(msgSvc, log, cfg.RequestTimeout),
		Push:          handlers.NewPushHandler(pushSubs, cfg.VAPIDPublicKey, log, cfg.RequestTimeout),
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if pusher != nil {
		pusher.Wait()
	}

	log.Info().Msg("server stopped gracefully")
	return nil
}

func connectWithRetry(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*database.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err == nil {
			log.Info().Str("database", cfg.MongoDatabase).Msg("mongo connected")
			return db, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("mongo connection attempt failed")
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect mongo after 3 attempts: %w", lastErr)
}
