package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/navid-fn/mandi/server/internal/handler"
	"github.com/navid-fn/mandi/server/internal/middleware"
)

type Config struct {
	MarketHandler *handler.MarketHandler
	ViewHandler   *handler.ViewHandler
	RowHandler    *handler.RowHandler

	// Gate guards row mutations.
	Gate middleware.Gate
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.PrometheusMetrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	registerMarketRoutes(api, cfg.MarketHandler)
	registerViewRoutes(api, cfg.ViewHandler)
	registerRowRoutes(api, cfg.RowHandler, cfg.Gate)

	return router
}
