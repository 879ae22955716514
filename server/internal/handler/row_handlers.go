package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/mandi/internal/service"
	"github.com/navid-fn/mandi/internal/storage"
	dbmodels "github.com/navid-fn/mandi/internal/storage/models"
)

type RowHandler struct {
	marketService *service.MarketService
}

func NewRowHandler(service *service.MarketService) *RowHandler {
	return &RowHandler{
		marketService: service,
	}
}

type rowQuery struct {
	State     string `form:"state"`
	District  string `form:"district"`
	Market    string `form:"market"`
	Commodity string `form:"commodity"`
	Limit     int    `form:"limit" binding:"gte=0"`
}

type createRowRequest struct {
	State     string   `json:"state"`
	District  string   `json:"district"`
	Market    string   `json:"market" binding:"required"`
	Commodity string   `json:"commodity" binding:"required"`
	Price     *float64 `json:"price" binding:"required,gte=0"`
	Date      string   `json:"date"`
}

type updateRowRequest struct {
	Market    string   `json:"market" binding:"required"`
	Commodity string   `json:"commodity" binding:"required"`
	Price     *float64 `json:"price" binding:"required,gte=0"`
}

func (h *RowHandler) List(c *gin.Context) {
	var q rowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, err := h.marketService.ListRows(c.Request.Context(), storage.RowFilter{
		State:     q.State,
		District:  q.District,
		Market:    q.Market,
		Commodity: q.Commodity,
		Limit:     q.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *RowHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, err := h.marketService.GetRow(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *RowHandler) Create(c *gin.Context) {
	var req createRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row := &dbmodels.PriceRow{
		State:     req.State,
		District:  req.District,
		Market:    req.Market,
		Commodity: req.Commodity,
		Price:     *req.Price,
		Date:      req.Date,
	}
	if err := h.marketService.CreateRow(c.Request.Context(), row); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *RowHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := h.marketService.UpdateRow(c.Request.Context(), id, storage.RowUpdate{
		Market:    req.Market,
		Commodity: req.Commodity,
		Price:     *req.Price,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *RowHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.marketService.DeleteRow(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Market data deleted successfully"})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidRow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
