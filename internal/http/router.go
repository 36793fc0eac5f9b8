package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/instihub/portal/internal/auth"
	"github.com/instihub/portal/internal/cache"
	"github.com/instihub/portal/internal/config"
	"github.com/instihub/portal/internal/domain/user"
	"github.com/instihub/portal/internal/enroll"
	"github.com/instihub/portal/internal/http/handlers"
	"github.com/instihub/portal/internal/http/middlewares"
	"github.com/instihub/portal/internal/observability"
	"github.com/instihub/portal/internal/repo/postgres"
	"github.com/instihub/portal/internal/stats"
)

// NewRouter wires repositories, services and handlers onto a gin engine.

func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, cacheStore cache.Store, promRegistry *prometheus.Registry) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	prom := observability.NewProm(promRegistry)

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(otelgin.Middleware("portal-api"))
	r.Use(prom.GinHandleMiddleware())

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	coursesRepo := postgres.NewCoursesRepo(pool, prom)
	enrollmentsRepo := postgres.NewEnrollmentsRepo(pool, prom)
	refreshTokensRepo := postgres.NewRefreshTokensRepo(pool)

	// services
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	enrollSvc := enroll.NewService(usersRepo, coursesRepo, enrollmentsRepo)
	statsSvc := stats.NewService(usersRepo, coursesRepo, enrollmentsRepo, cacheStore, prom)

	// handlers
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, refreshTokensRepo, cfg)
	usersHandler := handlers.NewUsersHandler(usersRepo)
	coursesHandler := handlers.NewCoursesHandler(coursesRepo, statsSvc)
	enrollmentsHandler := handlers.NewEnrollmentsHandler(enrollSvc, enrollmentsRepo, statsSvc)
	statsHandler := handlers.NewStatsHandler(statsSvc)

	authMW := middlewares.NewAuthMiddleware(jwtManager)

	// login and register get a tighter per-IP limiter than the rest
	authLimiter := middlewares.NewRateLimiter(20, time.Minute)
	apiLimiter := middlewares.NewRateLimiter(300, time.Minute)

	authGroup := r.Group("/auth")
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		// refresh and logout carry no body, so the JSON gate only guards
		// the credential-bearing routes
		authGroup.POST("/register", middlewares.RequireJSON(), authHandler.Register)
		authGroup.POST("/login", middlewares.RequireJSON(), authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	api := r.Group("/api")
	api.Use(authMW.RequireAuth())
	api.Use(apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	api.Use(middlewares.RequireJSON())

	// any authenticated user can browse the catalogue
	courses := api.Group("/courses")
	{
		courses.GET("", coursesHandler.List)
		courses.GET("/:id", coursesHandler.Get)
	}

	student := api.Group("/student")
	student.Use(authMW.RequireRole(user.RoleStudent, user.RoleAdmin))
	{
		student.POST("/enrollments", enrollmentsHandler.Enroll)
		student.GET("/enrollments", enrollmentsHandler.Mine)
	}

	instructor := api.Group("/instructor")
	instructor.Use(authMW.RequireRole(user.RoleInstructor, user.RoleAdmin))
	{
		instructor.POST("/courses", coursesHandler.Create)
		instructor.PATCH("/courses/:id", coursesHandler.Patch)
		instructor.DELETE("/courses/:id", coursesHandler.Delete)
	}

	admin := api.Group("/admin")
	admin.Use(authMW.RequireRole(user.RoleAdmin))
	{
		admin.GET("/users", usersHandler.List)
		admin.POST("/users", usersHandler.Create)
		admin.GET("/users/:id", usersHandler.Get)
		admin.PATCH("/users/:id", usersHandler.Patch)
		admin.DELETE("/users/:id", usersHandler.Delete)

		admin.GET("/enrollments", enrollmentsHandler.List)
		admin.GET("/enrollments/:id", enrollmentsHandler.Get)
		admin.PATCH("/enrollments/:id", enrollmentsHandler.Patch)
		admin.DELETE("/enrollments/:id", enrollmentsHandler.Delete)

		admin.GET("/stats", statsHandler.System)
		admin.GET("/stats/top-courses", statsHandler.TopCourses)
	}

	return r
}
