package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/mandi/server/internal/handler"
	"github.com/navid-fn/mandi/server/internal/middleware"
)

func registerMarketRoutes(router *gin.RouterGroup, marketHandler *handler.MarketHandler) {
	router.GET("/market-data", marketHandler.GetMarketData)
	router.GET("/commodities", marketHandler.GetCommodities)
	router.GET("/markets", marketHandler.GetMarkets)
	router.GET("/market-stats", marketHandler.GetMarketStats)
	router.GET("/health", marketHandler.GetHealth)
}

func registerViewRoutes(router *gin.RouterGroup, viewHandler *handler.ViewHandler) {
	views := router.Group("/views")
	{
		views.GET("/dashboard", viewHandler.GetDashboard)
		views.GET("/market-analysis", viewHandler.GetMarketAnalysis)
		views.GET("/price-trends", viewHandler.GetPriceTrends)
		views.GET("/reports", viewHandler.GetReports)
	}
}

func registerRowRoutes(router *gin.RouterGroup, rowHandler *handler.RowHandler, gate middleware.Gate) {
	rows := router.Group("/rows")
	{
		rows.GET("", rowHandler.List)
		rows.GET("/:id", rowHandler.Get)

		write := rows.Group("", middleware.RequireAuthorization(gate))
		write.POST("", rowHandler.Create)
		write.PUT("/:id", rowHandler.Update)
		write.DELETE("/:id", rowHandler.Delete)
	}
}
