package projection

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	httperr "github.com/orderhub-lab/orderhub-analytics/internal/core/errors"
)

// RegisterRoutes registers the analytics read API on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.GET("/products/:product_id/analysis", s.HandleQueryAnalysis)
	v1.GET("/products/:product_id/summary", s.HandleProductSummary)
	v1.GET("/branches/:branch_id/revenue", s.HandleQueryRevenue)
}

// HandleQueryAnalysis handles GET /api/v1/products/:product_id/analysis
// Query parameters: start, end (inclusive dates, YYYY-MM-DD)
func (s *Service) HandleQueryAnalysis(c *gin.Context) {
	start, end, ok := s.bindDateRange(c)
	if !ok {
		return
	}

	resp, err := s.QueryAnalysis(c.Request.Context(), AnalysisQueryRequest{
		ProductID: c.Param("product_id"),
		Start:     start,
		End:       end,
	})
	if err != nil {
		s.writeError(c, err, "Failed to query product analysis")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleProductSummary handles GET /api/v1/products/:product_id/summary
func (s *Service) HandleProductSummary(c *gin.Context) {
	resp, err := s.ProductSummary(c.Request.Context(), c.Param("product_id"))
	if err != nil {
		s.writeError(c, err, "Failed to load product summary")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleQueryRevenue handles GET /api/v1/branches/:branch_id/revenue
// Query parameters: start, end (inclusive dates, YYYY-MM-DD)
func (s *Service) HandleQueryRevenue(c *gin.Context) {
	start, end, ok := s.bindDateRange(c)
	if !ok {
		return
	}

	resp, err := s.QueryRevenue(c.Request.Context(), RevenueQueryRequest{
		BranchID: c.Param("branch_id"),
		Start:    start,
		End:      end,
	})
	if err != nil {
		s.writeError(c, err, "Failed to query branch revenue")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bindDateRange parses the start/end query parameters. On failure it writes
// the 400 response itself and returns ok=false.
func (s *Service) bindDateRange(c *gin.Context) (start, end time.Time, ok bool) {
	var query struct {
		Start string `form:"start" binding:"required"`
		End   string `form:"end" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return time.Time{}, time.Time{}, false
	}

	start, err := s.ParseDate(query.Start)
	if err == nil {
		end, err = s.ParseDate(query.End)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid date parameters",
			Details:   err.Error(),
		})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (s *Service) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   message,
			Details:   err.Error(),
		})
	case IsNotFound(err):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   message,
			Details:   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   message,
			Details:   err.Error(),
		})
	}
}
