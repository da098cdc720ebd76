package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/baybe/cleanbook/internal/auth"
	"github.com/baybe/cleanbook/internal/config"
	"github.com/baybe/cleanbook/internal/domain/booking"
	"github.com/baybe/cleanbook/internal/http/handlers"
	"github.com/baybe/cleanbook/internal/http/middlewares"
	"github.com/baybe/cleanbook/internal/mail"
	"github.com/baybe/cleanbook/internal/observability"
	"github.com/baybe/cleanbook/internal/repo/postgres"
	"github.com/baybe/cleanbook/internal/security"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, mailer mail.Mailer, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	booking.RegisterValidations()

	r := gin.New()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(otelgin.Middleware("cleanbook"))
	r.Use(prom.HTTPMetrics())
	r.Use(middlewares.MaxBodyBytes(1 << 20))

	// health + metrics
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	bookingsRepo := postgres.NewBookingsRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	guard := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	observedMailer := &meteredMailer{inner: mailer, prom: prom}

	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, security.BcryptHasher{}, observedMailer, cfg, log)
	bookingsHandler := handlers.NewBookingsHandler(bookingsRepo, log)

	// credential endpoints share one IP limiter so a password sprayer gets
	// throttled across signup/login/forgot
	limiter := middlewares.NewRateLimiter(rdb, 10, time.Minute, "auth")

	authGroup := r.Group("/api/auth")
	authGroup.Use(middlewares.RequireJSON())
	{
		throttled := authGroup.Group("")
		throttled.Use(limiter.Middleware(middlewares.KeyByIP))

		throttled.POST("/signup", authHandler.Signup)
		throttled.POST("/login", authHandler.Login)
		throttled.POST("/forgot-password", authHandler.ForgotPassword)
		throttled.POST("/reset-password/:token", authHandler.ResetPassword)

		authGroup.GET("/me", guard.RequireAuth(), authHandler.Me)
	}

	bookingsGroup := r.Group("/api/bookings")
	bookingsGroup.Use(middlewares.RequireJSON(), guard.RequireAuth())
	{
		bookingsGroup.POST("", bookingsHandler.CreateBooking)
		bookingsGroup.GET("", bookingsHandler.ListBookings)
		bookingsGroup.GET("/:id", bookingsHandler.GetBooking)
		bookingsGroup.PUT("/:id/status", bookingsHandler.UpdateBookingStatus)
		bookingsGroup.DELETE("/:id", bookingsHandler.CancelBooking)
	}

	return r
}

type meteredMailer struct {
	inner mail.Mailer
	prom  *observability.Prom
}

func (m *meteredMailer) Send(ctx context.Context, to, subject, html string) error {
	err := m.inner.Send(ctx, to, subject, html)
	m.prom.ObserveMail(err)
	return err
}
