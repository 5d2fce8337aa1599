package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"elitehub/payment/exchange"
	"elitehub/payment/gateway"
	"elitehub/utils"
	"elitehub/web/chat"
	"elitehub/web/controllers"
	"elitehub/web/db"
	"elitehub/web/email"
	"elitehub/web/ledger"
	"elitehub/web/listing"
	"elitehub/web/middleware"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

func main() {
	utils.LoadEnv()
	cfg, err := utils.LoadConfig()
	if err != nil {
		logrus.Fatalln("Error loading config:", err)
	}
	log := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	conn, err := db.Connect(cfg.DSN)
	if err != nil {
		log.Fatalln("Error connecting to database:", err)
	}
	if err := db.Sync(conn); err != nil {
		log.Fatalln("Error migrating database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg := ledger.New(conn, log)
	if cfg.SendGridAPIKey != "" {
		sender := email.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName)
		lg = lg.WithNotifier(email.NewNotifier(conn, sender, log))
	} else {
		log.Warn("SENDGRID_API_KEY not set, notifications are in-app only")
	}

	dir := listing.New(conn, log)
	if err := dir.Restore(ctx); err != nil {
		log.Fatalln("Error restoring provider listings:", err)
	}

	h := controllers.New(controllers.Deps{
		DB:           conn,
		Log:          log,
		Ledger:       lg,
		Directory:    dir,
		Chat:         chat.New(conn, chat.NewHub(), log),
		Auth:         middleware.NewAuth(conn, cfg.JWTSecret, cfg.TokenTTL),
		Gateway:      gateway.New(cfg.GatewayBaseURL, cfg.GatewaySecretKey),
		Exchange:     exchange.NewConverter(cfg.ExchangeRatesURL, log),
		ShareBaseURL: cfg.ShareBaseURL,
		Retention:    cfg.RetainRead,
	})

	r := h.Router(controllers.RouterConfig{
		Origins:    cfg.Origins(),
		CronSecret: cfg.CronSecret,
		Limiter:    newLimiter(ctx, cfg, log).Middleware(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.WithField("port", cfg.Port).Info("web service listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalln(err)
	}
}

// newLimiter shares counters through Redis when REDIS_URL is set and keeps
// them in memory otherwise.
func newLimiter(ctx context.Context, cfg utils.Config, log *logrus.Logger) *middleware.RateLimiter {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalln("Error parsing REDIS_URL:", err)
		}
		perMinute := int(cfg.RateLimitRPS*60) + cfg.RateLimitBurst
		return middleware.NewRateLimiter(middleware.NewRedisStore(redis.NewClient(opts), perMinute, time.Minute), log)
	}

	store := middleware.NewMemoryStore(cfg.RateLimitRPS, cfg.RateLimitBurst)
	store.StartCleanup(ctx, 10*time.Minute)
	return middleware.NewRateLimiter(store, log)
}
