package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/padraicbc/demoapi/config"
	"github.com/padraicbc/demoapi/db"
	"github.com/padraicbc/demoapi/files"
	"github.com/padraicbc/demoapi/handlers"
	applog "github.com/padraicbc/demoapi/logger"
	mw "github.com/padraicbc/demoapi/middleware"
	"github.com/padraicbc/demoapi/service"
	"github.com/padraicbc/demoapi/store"
	"github.com/padraicbc/demoapi/token"
)

func main() {
	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx := context.Background()
	bdb, err := db.Setup(ctx, cfg)
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}
	defer bdb.Close()

	if err := db.CreateTables(ctx, bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	codec, err := token.New(cfg.JWTKey())
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}

	fstore := files.NewOS(cfg.DemoBaseFolder)
	users := service.NewUserService(logger, store.NewUserStore(bdb), codec)
	demos := service.NewDemoService(logger, store.NewDemoStore(bdb), fstore)

	h := handlers.New(users, demos, fstore, handlers.UploadLimits{
		Extensions:  cfg.DemoExtensions,
		MaxFileSize: cfg.MaxDemoFileSize,
		MaxFiles:    cfg.MaxDemosPerUpload,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler(logger)

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"*", mw.TokenHeader, echo.HeaderAuthorization},
		ExposeHeaders: []string{mw.TokenHeader},
	}))
	// Whole multipart batch plus form overhead.
	e.Use(echomw.BodyLimit(bodyLimit(cfg)))

	h.Mount(e.Group("/api"), mw.JWT(codec, users))

	if cfg.Debug {
		logger.Info("starting server", zap.String("mode", "debug"), zap.String("addr", cfg.Port))
		if err := e.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server exited", zap.Error(err))
		}
		return
	}

	autoTLS := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(".cache"),
		HostPolicy: autocert.HostWhitelist(cfg.TLSDomains...),
	}

	s := &http.Server{
		Addr:         ":443",
		Handler:      e,
		TLSConfig:    autoTLS.TLSConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	logger.Info("starting server", zap.String("mode", "tls"), zap.Strings("domains", cfg.TLSDomains))
	if err := s.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
		logger.Error("tls server exited", zap.Error(err))
		os.Exit(1)
	}
}

func bodyLimit(cfg *config.Config) string {
	const overhead = 1 << 20
	n := cfg.MaxDemoFileSize*int64(max(cfg.MaxDemosPerUpload, 1)) + overhead
	return strconv.FormatInt(n/1024+1, 10) + "K"
}
