package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/mandi/internal/models"
	"github.com/navid-fn/mandi/internal/service"
	"github.com/navid-fn/mandi/internal/stats"
	"github.com/navid-fn/mandi/utils"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

type MarketHandler struct {
	marketService *service.MarketService
	now           func() time.Time
}

func NewMarketHandler(service *service.MarketService) *MarketHandler {
	return &MarketHandler{
		marketService: service,
		now:           time.Now,
	}
}

// GetMarketData passes the resolver result through. Empty state and district
// take the configured defaults; date, when set, disables walk-back.
func (h *MarketHandler) GetMarketData(c *gin.Context) {
	var filter models.QueryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Date != "" {
		if _, err := utils.ParseSourceDate(filter.Date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be DD/MM/YYYY"})
			return
		}
	}
	c.JSON(http.StatusOK, h.marketService.MarketData(c.Request.Context(), filter))
}

func (h *MarketHandler) GetCommodities(c *gin.Context) {
	recs := h.marketService.LiveRecords(c.Request.Context())
	c.JSON(http.StatusOK, stats.CommodityRefs(recs))
}

func (h *MarketHandler) GetMarkets(c *gin.Context) {
	recs := h.marketService.LiveRecords(c.Request.Context())
	c.JSON(http.StatusOK, stats.MarketRefs(recs))
}

type marketStats struct {
	stats.Summary
	LastUpdated string `json:"last_updated,omitempty"`
}

// GetMarketStats summarizes live records with prices rounded to 2 places.
// last_updated is only set when there is data.
func (h *MarketHandler) GetMarketStats(c *gin.Context) {
	recs := h.marketService.LiveRecords(c.Request.Context())
	if len(recs) == 0 {
		c.JSON(http.StatusOK, marketStats{})
		return
	}
	c.JSON(http.StatusOK, marketStats{
		Summary:     stats.Summarize(recs).Rounded(),
		LastUpdated: h.now().Format(time.RFC3339),
	})
}

func (h *MarketHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   Version,
		"timestamp": h.now().Format(time.RFC3339),
	})
}
