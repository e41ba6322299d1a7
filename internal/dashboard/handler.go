package dashboard

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/gin-gonic/gin"
)

const (
	defaultProductLimit = 50
	maxProductLimit     = 500
	defaultHistoryDays  = 30
	defaultRunLimit     = 20
)

type Handler struct {
	log    *slog.Logger
	reader repository.Reader
	now    func() time.Time
}

func NewHandler(log *slog.Logger, reader repository.Reader) *Handler {
	return &Handler{log: log, reader: reader, now: time.Now}
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.reader.ListCategories(c.Request.Context())
	if err != nil {
		h.internalError(c, "dashboard.ListCategories", "failed to fetch categories", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": nonNil(categories)})
}

func (h *Handler) ListProducts(c *gin.Context) {
	limit, ok := queryInt(c, "limit", defaultProductLimit)
	if !ok {
		return
	}

	products, err := h.reader.ListProducts(c.Request.Context(), models.ProductFilter{
		Category: c.Param("category"),
		Search:   c.Query("search"),
		Limit:    min(limit, maxProductLimit),
	})
	if err != nil {
		h.internalError(c, "dashboard.ListProducts", "failed to fetch products", err)
		return
	}

	c.JSON(http.StatusOK, nonNil(products))
}

func (h *Handler) CategoryReport(c *gin.Context) {
	report, err := h.reader.CategoryReport(c.Request.Context(), c.Param("category"))
	if err != nil {
		h.internalError(c, "dashboard.CategoryReport", "failed to build report", err)
		return
	}

	if report.TotalProducts == 0 && report.LastRun == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown category"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	p, err := h.reader.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.internalError(c, "dashboard.GetProduct", "failed to fetch product", err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) PriceHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	days, ok := queryInt(c, "days", defaultHistoryDays)
	if !ok {
		return
	}

	since := h.now().UTC().AddDate(0, 0, -days)
	history, err := h.reader.PriceHistory(c.Request.Context(), id, since)
	if err != nil {
		h.internalError(c, "dashboard.PriceHistory", "failed to fetch history", err)
		return
	}

	c.JSON(http.StatusOK, nonNil(history))
}

func (h *Handler) ProductStats(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	stats, err := h.reader.ProductStats(c.Request.Context(), id)
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrHistoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no price history"})
	case err != nil:
		h.internalError(c, "dashboard.ProductStats", "failed to compute stats", err)
	default:
		c.JSON(http.StatusOK, stats)
	}
}

func (h *Handler) RecentRuns(c *gin.Context) {
	limit, ok := queryInt(c, "limit", defaultRunLimit)
	if !ok {
		return
	}

	runs, err := h.reader.RecentRuns(c.Request.Context(), c.Query("category"), limit)
	if err != nil {
		h.internalError(c, "dashboard.RecentRuns", "failed to fetch runs", err)
		return
	}

	c.JSON(http.StatusOK, nonNil(runs))
}

func (h *Handler) internalError(c *gin.Context, opn, msg string, err error) {
	h.log.ErrorContext(c.Request.Context(), msg, "op", opn, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}

	return id, true
}

// queryInt reads a positive integer query value, writing a 400 response when it is malformed.
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}

	return v, true
}

// nonNil keeps empty results encoded as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
