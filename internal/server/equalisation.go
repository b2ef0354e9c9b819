package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	eqdomain "github.com/petroworks/pumpline/internal/equalisation/domain"
	"github.com/shopspring/decimal"
)

type createEqualisationPointRequest struct {
	RouteID          string          `json:"route_id"`
	DepotID          string          `json:"depot_id"`
	StationID        string          `json:"station_id"`
	KmThreshold      decimal.Decimal `json:"km_threshold"`
	TrafficFactor    decimal.Decimal `json:"traffic_factor"`
	ComplexityFactor decimal.Decimal `json:"complexity_factor"`
	EffectiveFrom    *time.Time      `json:"effective_from"`
}

func (s *Server) CreateEqualisationPoint(c *gin.Context) {
	var req createEqualisationPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	domainReq := eqdomain.CreateRequest{
		RouteID:          strings.TrimSpace(req.RouteID),
		DepotID:          strings.TrimSpace(req.DepotID),
		StationID:        strings.TrimSpace(req.StationID),
		KmThreshold:      req.KmThreshold,
		TrafficFactor:    req.TrafficFactor,
		ComplexityFactor: req.ComplexityFactor,
	}
	if req.EffectiveFrom != nil {
		domainReq.EffectiveFrom = *req.EffectiveFrom
	}

	point, err := s.equalisationSvc.Create(c.Request.Context(), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": point})
}

func (s *Server) EqualisationHistory(c *gin.Context) {
	history, err := s.equalisationSvc.History(c.Request.Context(), strings.TrimSpace(c.Param("route_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}
