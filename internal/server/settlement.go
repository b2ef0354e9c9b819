package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	setdomain "github.com/petroworks/pumpline/internal/settlement/domain"
)

type settleRequest struct {
	WindowID string   `json:"window_id"`
	ClaimIDs []string `json:"claim_ids"`
	Actor    string   `json:"actor"`
}

func (s *Server) Settle(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	claimIDs := make([]snowflake.ID, 0, len(req.ClaimIDs))
	for _, raw := range req.ClaimIDs {
		id, err := snowflakeFromString(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		claimIDs = append(claimIDs, id)
	}

	settlement, err := s.settlementSvc.Settle(c.Request.Context(), setdomain.SettleRequest{
		WindowID: strings.TrimSpace(req.WindowID),
		ClaimIDs: claimIDs,
		Actor:    req.Actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settlement})
}

func (s *Server) GetSettlement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	settlement, err := s.settlementSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settlement})
}

func (s *Server) SettlementsByWindow(c *gin.Context) {
	settlements, err := s.settlementSvc.ListByWindow(c.Request.Context(), strings.TrimSpace(c.Param("window_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settlements})
}
