package httptransport

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tutor-voice-server/internal/platform/config"
	"tutor-voice-server/internal/platform/logging"
)

// Options configures the HTTP router builder.
type Options struct {
	Config *config.Config
	Logger *logging.Logger
}

// Router bundles the gin engine and the /api group every handler mounts on.
type Router struct {
	Engine *gin.Engine
	API    *gin.RouterGroup
}

// Build 创建 gin 引擎并挂载公共中间件
func Build(opts Options) (*Router, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("http router requires config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	if opts.Config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	_ = engine.SetTrustedProxies(nil)
	engine.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		accessLogMiddleware(logger),
		spanMiddleware(),
		cors.New(corsConfig(opts.Config.Server.AllowOrigins)),
	)

	return &Router{
		Engine: engine,
		API:    engine.Group("/api"),
	}, nil
}

// corsConfig allows any origin for "*" (or nothing configured); an explicit
// list also allows credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
