package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	recdomain "github.com/petroworks/pumpline/internal/reconciliation/domain"
	"github.com/shopspring/decimal"
)

type reconcileRequest struct {
	ConsignmentID         string          `json:"consignment_id"`
	DepotVolume           decimal.Decimal `json:"depot_volume"`
	DepotRef              string          `json:"depot_ref"`
	TransporterVolume     decimal.Decimal `json:"transporter_volume"`
	TransporterRef        string          `json:"transporter_ref"`
	StationVolume         decimal.Decimal `json:"station_volume"`
	StationRef            string          `json:"station_ref"`
	RouteComplexity       decimal.Decimal `json:"route_complexity"`
	ProductVolatility     decimal.Decimal `json:"product_volatility"`
	GPSConfidence         decimal.Decimal `json:"gps_confidence"`
	DocumentationComplete bool            `json:"documentation_complete"`
}

// Reconcile runs the three-way volume check through the claims service
// so a detected variance lands on the consignment's claim.
func (s *Server) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rec, err := s.claimSvc.RecordReconciliation(c.Request.Context(), recdomain.ReconcileRequest{
		ConsignmentID:         strings.TrimSpace(req.ConsignmentID),
		DepotVolume:           req.DepotVolume,
		DepotRef:              req.DepotRef,
		TransporterVolume:     req.TransporterVolume,
		TransporterRef:        req.TransporterRef,
		StationVolume:         req.StationVolume,
		StationRef:            req.StationRef,
		RouteComplexity:       req.RouteComplexity,
		ProductVolatility:     req.ProductVolatility,
		GPSConfidence:         req.GPSConfidence,
		DocumentationComplete: req.DocumentationComplete,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

func (s *Server) GetReconciliation(c *gin.Context) {
	rec, err := s.reconSvc.FindByConsignment(c.Request.Context(), strings.TrimSpace(c.Param("consignment_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

type reconciliationNoteRequest struct {
	Note string `json:"note"`
}

func (s *Server) DisputeReconciliation(c *gin.Context) {
	var req reconciliationNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rec, err := s.reconSvc.Dispute(c.Request.Context(), strings.TrimSpace(c.Param("consignment_id")), req.Note)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

func (s *Server) ResolveReconciliation(c *gin.Context) {
	var req reconciliationNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rec, err := s.reconSvc.Resolve(c.Request.Context(), strings.TrimSpace(c.Param("consignment_id")), req.Note)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

// AddReconciliationNote appends an audit note. Unlike the status
// operations it also works on a resolved reconciliation.
func (s *Server) AddReconciliationNote(c *gin.Context) {
	var req reconciliationNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rec, err := s.reconSvc.AddNote(c.Request.Context(), strings.TrimSpace(c.Param("consignment_id")), req.Note)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}
