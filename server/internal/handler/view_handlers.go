package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/mandi/internal/service"
)

// ViewHandler serves the data behind the dashboard pages. Views always
// answer 200; a failure yields the empty view.
type ViewHandler struct {
	marketService *service.MarketService
}

func NewViewHandler(service *service.MarketService) *ViewHandler {
	return &ViewHandler{
		marketService: service,
	}
}

func (h *ViewHandler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.marketService.Dashboard(c.Request.Context()))
}

func (h *ViewHandler) GetMarketAnalysis(c *gin.Context) {
	c.JSON(http.StatusOK, h.marketService.MarketAnalysis(c.Request.Context()))
}

func (h *ViewHandler) GetPriceTrends(c *gin.Context) {
	c.JSON(http.StatusOK, h.marketService.PriceTrends(c.Request.Context()))
}

func (h *ViewHandler) GetReports(c *gin.Context) {
	reportType := c.DefaultQuery("type", "daily")
	c.JSON(http.StatusOK, h.marketService.Reports(c.Request.Context(), reportType))
}
