package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
)

type createClaimRequest struct {
	ConsignmentID string `json:"consignment_id"`
	WindowID      string `json:"window_id"`
	DealerID      string `json:"dealer_id"`
	Actor         string `json:"actor"`
}

func (s *Server) CreateClaim(c *gin.Context) {
	var req createClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	claim, err := s.claimSvc.CreateClaim(c.Request.Context(), claimdomain.CreateClaimRequest{
		ConsignmentID: strings.TrimSpace(req.ConsignmentID),
		WindowID:      strings.TrimSpace(req.WindowID),
		DealerID:      strings.TrimSpace(req.DealerID),
		Actor:         req.Actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": claim})
}

func (s *Server) GetClaim(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	claim, err := s.claimSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": claim})
}

type transitionClaimRequest struct {
	Target claimdomain.ClaimStatus `json:"target"`
	Actor  string                  `json:"actor"`
	Reason string                  `json:"reason"`
}

func (s *Server) TransitionClaim(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req transitionClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	claim, err := s.claimSvc.Transition(c.Request.Context(), claimdomain.TransitionRequest{
		ClaimID: id,
		Target:  req.Target,
		Actor:   req.Actor,
		Reason:  req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": claim})
}

func (s *Server) ClaimAuditTrail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	trail, err := s.claimSvc.AuditTrail(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trail})
}

func (s *Server) ClaimAnomalies(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	anomalies, err := s.claimSvc.Anomalies(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": anomalies})
}

type addAnomalyRequest struct {
	Type        claimdomain.AnomalyType `json:"type"`
	Severity    claimdomain.Severity    `json:"severity"`
	Description string                  `json:"description"`
	Actor       string                  `json:"actor"`
}

func (s *Server) AddClaimAnomaly(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req addAnomalyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	claim, err := s.claimSvc.AddAnomaly(c.Request.Context(), id, claimdomain.AnomalyInput{
		Type:        req.Type,
		Severity:    req.Severity,
		Description: req.Description,
		Actor:       req.Actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": claim})
}

type resolveAnomalyRequest struct {
	Actor string `json:"actor"`
}

func (s *Server) ResolveClaimAnomaly(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	anomalyID, ok := parseID(c, "anomaly_id")
	if !ok {
		return
	}

	var req resolveAnomalyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	claim, err := s.claimSvc.ResolveAnomaly(c.Request.Context(), id, anomalyID, req.Actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": claim})
}

type listClaimsQuery struct {
	WindowID  string `form:"window_id"`
	Status    string `form:"status"`
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
}

func (s *Server) ListClaims(c *gin.Context) {
	var query listClaimsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.claimSvc.ListClaims(c.Request.Context(), claimdomain.ListClaimsRequest{
		WindowID:  strings.TrimSpace(query.WindowID),
		Status:    claimdomain.ClaimStatus(query.Status),
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Claims, "page_info": resp.PageInfo})
}

func (s *Server) WindowSummary(c *gin.Context) {
	summary, err := s.claimSvc.WindowSummary(c.Request.Context(), strings.TrimSpace(c.Param("window_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}
