package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	pbdomain "github.com/petroworks/pumpline/internal/pricebuildup/domain"
	"github.com/shopspring/decimal"
)

type computePriceRequest struct {
	StationID string                     `json:"station_id"`
	ProductID string                     `json:"product_id"`
	WindowID  string                     `json:"window_id"`
	AsOf      *time.Time                 `json:"as_of"`
	Overrides map[string]decimal.Decimal `json:"overrides"`
}

func (s *Server) ComputePrice(c *gin.Context) {
	var req computePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	domainReq := pbdomain.ComputeRequest{
		StationID: strings.TrimSpace(req.StationID),
		ProductID: strings.TrimSpace(req.ProductID),
		WindowID:  strings.TrimSpace(req.WindowID),
		Overrides: req.Overrides,
	}
	if req.AsOf != nil {
		domainReq.AsOf = *req.AsOf
	}

	breakdown, err := s.priceSvc.ComputePrice(c.Request.Context(), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": breakdown})
}

type bulkComputeRequest struct {
	WindowID   string     `json:"window_id"`
	StationIDs []string   `json:"station_ids"`
	ProductIDs []string   `json:"product_ids"`
	AsOf       *time.Time `json:"as_of"`
}

func (s *Server) BulkCompute(c *gin.Context) {
	var req bulkComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	domainReq := pbdomain.BulkComputeRequest{
		WindowID:   strings.TrimSpace(req.WindowID),
		StationIDs: req.StationIDs,
		ProductIDs: req.ProductIDs,
	}
	if req.AsOf != nil {
		domainReq.AsOf = *req.AsOf
	}

	result, err := s.priceSvc.BulkCompute(c.Request.Context(), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

type validateBreakdownRequest struct {
	BreakdownID string `json:"breakdown_id"`
}

func (s *Server) ValidateBreakdown(c *gin.Context) {
	var req validateBreakdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	id, err := snowflakeFromString(req.BreakdownID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	breakdown, err := s.priceSvc.Validate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": breakdown})
}

func (s *Server) LatestBreakdown(c *gin.Context) {
	stationID := strings.TrimSpace(c.Query("station_id"))
	productID := strings.TrimSpace(c.Query("product_id"))
	windowID := strings.TrimSpace(c.Query("window_id"))
	if stationID == "" || productID == "" || windowID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	breakdown, err := s.priceSvc.Latest(c.Request.Context(), stationID, productID, windowID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": breakdown})
}
