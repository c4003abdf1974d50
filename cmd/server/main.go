package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"github.com/rs/cors"

	"github.com/damacus/storx-files/internal/config"
	"github.com/damacus/storx-files/internal/handlers"
	"github.com/damacus/storx-files/internal/metrics"
	customMiddleware "github.com/damacus/storx-files/internal/middleware"
	"github.com/damacus/storx-files/internal/preview"
	"github.com/damacus/storx-files/internal/renderer"
	"github.com/damacus/storx-files/internal/services"
	"github.com/damacus/storx-files/views"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}
	if err := cfg.OAuth.Validate(); err != nil {
		log.Printf("OAuth is not fully configured, sign-in will fail: %v", err)
	}

	factory, err := services.NewClientFactory(cfg.S3Driver, cfg.S3Region)
	if err != nil {
		log.Fatalf("storage driver: %v", err)
	}

	e, err := newServer(cfg, factory, services.NewStorXGrantExchanger(cfg.AuthAPIURL))
	if err != nil {
		log.Fatalf("server setup: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}
}

func newServer(cfg *config.Config, factory services.ClientFactory, exchanger services.GrantExchanger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.HTTPErrorHandler = httpErrorHandler(e)

	// Services
	m := metrics.New()
	authService := services.NewAuthService(cfg.SessionKey, cfg.SessionTTL)
	loginService := services.NewLoginService(cfg.OAuth)
	lister := services.NewLister(factory, cfg.ListConcurrency, e.Logger, m)
	cleaner := services.NewBucketCleaner(cfg.DeleteConcurrency)
	extractor := preview.NewExtractor(preview.DefaultSanitizer())

	authHandler := handlers.NewAuthHandler(authService, loginService, exchanger, factory)
	filesHandler := handlers.NewFilesHandler(factory, lister, cleaner, extractor, cfg.PreviewMaxBytes, m)
	dashboardHandler := handlers.NewDashboardHandler(lister)

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogRequestID: true,
		LogLatency:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("REQUEST: id: %s, method: %s, uri: %v, status: %v, latency: %s\n",
				v.RequestID, v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echo.WrapMiddleware(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
			AllowCredentials: true,
		}).Handler))
	}
	e.Use(m.Middleware())
	e.Use(customMiddleware.SecurityHeaders())
	e.Use(customMiddleware.CSRF())
	// Apply auth middleware globally - it will skip public routes internally
	e.Use(customMiddleware.AuthMiddleware(authService))

	// Template Renderer
	r, err := renderer.New(views.FS)
	if err != nil {
		return nil, err
	}
	e.Renderer = r
	e.StaticFS("/static", echo.MustSubFS(views.FS, "static"))

	// Public Routes (auth middleware will skip these)
	e.GET("/", authHandler.LoginPage)
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/api/auth/login", authHandler.Login)
	e.GET("/api/auth/callback", authHandler.Callback)
	e.POST("/api/auth/logout", authHandler.Logout)

	// Protected Routes
	e.GET("/api/auth/session", authHandler.Session)
	e.GET("/dashboard", dashboardHandler.Dashboard)
	e.GET("/dashboard/tree", dashboardHandler.Tree)

	s3 := e.Group("/api/storx/s3")
	s3.GET("/list", filesHandler.List)
	s3.POST("/list", filesHandler.List)
	s3.POST("/upload", filesHandler.Upload)
	s3.POST("/download", filesHandler.Download)
	s3.POST("/view", filesHandler.View)
	s3.POST("/delete", filesHandler.Delete)
	s3.POST("/create-bucket", filesHandler.CreateBucket)
	s3.POST("/delete-bucket", filesHandler.DeleteBucket)

	return e, nil
}

func logLevel(level string) glog.Lvl {
	switch level {
	case "debug":
		return glog.DEBUG
	case "warn":
		return glog.WARN
	case "error":
		return glog.ERROR
	case "off":
		return glog.OFF
	default:
		return glog.INFO
	}
}

// httpErrorHandler answers API routes with the same JSON error body the
// handlers use and leaves pages to echo's default handler
func httpErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed || !strings.HasPrefix(c.Request().URL.Path, "/api/") {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, handlers.ErrorResponse{Error: message})
		}
		if err != nil {
			c.Logger().Error(err)
		}
	}
}
