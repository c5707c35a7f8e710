package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/chachabrian/rideon-backend/internal/config"
	"github.com/chachabrian/rideon-backend/internal/database"
	"github.com/chachabrian/rideon-backend/internal/handlers"
	"github.com/chachabrian/rideon-backend/internal/identity"
	"github.com/chachabrian/rideon-backend/internal/middleware"
	"github.com/chachabrian/rideon-backend/internal/ratings"
	"github.com/chachabrian/rideon-backend/internal/rides"
	"github.com/chachabrian/rideon-backend/internal/services"
	"github.com/chachabrian/rideon-backend/internal/verification"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/chachabrian/rideon-backend/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const blacklistPurgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to initialize database", logger.Err(err))
	}

	// Redis is optional: without it revoked tokens live in the database
	var (
		redisClient *redis.Client
		blacklist   identity.TokenBlacklist
		publisher   services.UserNotifier
	)
	if cfg.Redis.URL != "" {
		redisClient, err = services.InitRedis(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal("Failed to initialize Redis", logger.Err(err))
		}
		defer redisClient.Close()
		blacklist = services.NewRedisTokenBlacklist(redisClient)
		publisher = services.NewRidePublisher(redisClient, log)
	} else {
		dbBlacklist := services.NewDBTokenBlacklist(db)
		blacklist = dbBlacklist
		go purgeBlacklist(ctx, dbBlacklist, log)
	}

	var awsSession *session.Session
	if cfg.Email.Provider == "ses" || cfg.SMS.Provider == "sns" {
		awsSession, err = session.NewSession(&aws.Config{Region: aws.String(cfg.AWS.Region)})
		if err != nil {
			log.Fatal("Failed to create AWS session", logger.Err(err))
		}
	}
	mailer := services.NewEmailSender(cfg.Email, awsSession, log)
	sms := services.NewSMSSender(cfg.SMS, awsSession, log)

	notifiers := services.MultiNotifier{}
	hub := services.NewHub(cfg.CORS.AllowedOrigins, log)
	go hub.Run(ctx)
	notifiers = append(notifiers, hub)

	// Push notifications are optional
	fcm, err := services.InitFirebase(ctx, cfg.Firebase.ServiceAccountPath)
	if err != nil {
		log.Warn("Firebase initialization failed, push notifications disabled", logger.Err(err))
	} else if fcm != nil {
		notifiers = append(notifiers, services.NewPushNotifier(fcm, db, log))
	}
	if publisher != nil {
		notifiers = append(notifiers, publisher)
	}

	tokens := utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	fare := utils.NewFareCalculator(cfg.Fare.BaseFare, cfg.Fare.PerKmRate, cfg.Fare.Currency, cfg.Fare.AverageSpeedKmh)

	deps := &handlers.Dependencies{
		DB:           db,
		Redis:        redisClient,
		Identity:     identity.NewService(db, tokens, blacklist, mailer, cfg.Server.BaseURL, log),
		Verification: verification.NewService(db, sms, mailer, cfg.Verification, cfg.Server.BaseURL, log),
		Rides:        rides.NewService(db, fare, notifiers, log),
		Ratings:      ratings.NewService(db, log),
		Fare:         fare,
		Tokens:       tokens,
		Hub:          hub,
		CookieSecure: cfg.Session.CookieSecure,
		Log:          log,
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.NewMetrics(prometheus.DefaultRegisterer).Handler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	if len(cfg.CORS.AllowedOrigins) == 1 && cfg.CORS.AllowedOrigins[0] == "*" {
		// credentials cannot be combined with a literal wildcard
		corsConfig.AllowOrigins = nil
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	}
	r.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWT.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("rideon_session", store))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", logger.String("port", cfg.Server.Port), logger.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", logger.Err(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Err(err))
		os.Exit(1)
	}
	log.Info("Server exited")
}

// purgeBlacklist drops expired revocations from the database
func purgeBlacklist(ctx context.Context, b *services.DBTokenBlacklist, log *logger.Logger) {
	ticker := time.NewTicker(blacklistPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := b.Purge(ctx)
			if err != nil {
				log.Warn("Failed to purge token blacklist", logger.Err(err))
				continue
			}
			if n > 0 {
				log.Debug("Purged expired token revocations", logger.Int("count", int(n)))
			}
		}
	}
}
