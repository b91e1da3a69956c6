package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/campuserp/internal/http/handlers"
	"github.com/geocoder89/campuserp/internal/http/middlewares"
	"github.com/geocoder89/campuserp/internal/observability"
	"github.com/geocoder89/campuserp/internal/phone"
	"github.com/geocoder89/campuserp/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Env         string
	ServiceName string
	Log         *slog.Logger

	Authenticator handlers.Authenticator
	Tokens        interface {
		handlers.TokenIssuer
		middlewares.TokenVerifier
	}
	Sessions handlers.SignupSessions
	Requests store.SignupReader
	Users    handlers.UserLister
	Rule     phone.Rule

	// Ping backs /readyz; nil means nothing external to check.
	Ping func(ctx context.Context) error

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	CORSAllowedOrigins []string
	LoginRateLimit     int
	RequestTimeout     time.Duration
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.ServiceName == "" {
		d.ServiceName = "campuserp-api"
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(d.Env != "dev"))
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(middlewares.DefaultMaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	health := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authMW := middlewares.NewAuthMiddleware(d.Tokens)
	authHandler := handlers.NewAuthHandler(d.Authenticator, d.Tokens, d.Log, d.Prom, d.RequestTimeout)

	// brute force guard on the only credential check
	loginLimiter := middlewares.NewRateLimiter(d.LoginRateLimit, time.Minute)

	api := r.Group("/api/v1")

	api.POST("/auth/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	api.GET("/auth/me", authMW.RequireAuth(), authHandler.Me)

	phoneHandler := handlers.NewPhoneHandler(d.Rule)
	api.POST("/phone/validate", phoneHandler.Validate)

	signupHandler := handlers.NewSignupHandler(d.Sessions, d.RequestTimeout)
	api.GET("/signup/departments", signupHandler.Departments)

	sessions := api.Group("/signup/sessions")
	sessions.POST("", signupHandler.Start)
	sessions.GET("/:id", signupHandler.Get)
	sessions.DELETE("/:id", signupHandler.Cancel)
	sessions.PUT("/:id/identity", signupHandler.SetIdentity)
	sessions.PUT("/:id/contact", signupHandler.SetContact)
	sessions.PUT("/:id/academic", signupHandler.SetAcademic)
	sessions.POST("/:id/next", signupHandler.Next)
	sessions.POST("/:id/back", signupHandler.Back)
	sessions.POST("/:id/submit", signupHandler.Submit)

	adminHandler := handlers.NewAdminHandler(d.Requests, d.Users)

	admin := api.Group("/admin",
		authMW.RequireAuth(),
		middlewares.RequireCapability(middlewares.CanViewAllData, "Administrator access required"),
	)
	admin.GET("/signup-requests", adminHandler.ListSignupRequests)
	admin.GET("/signup-requests/:id", adminHandler.GetSignupRequest)
	admin.GET("/users", adminHandler.ListUsers)

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "not_found", "Route not found", nil)
	})

	return r
}
