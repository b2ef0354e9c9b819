package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	"github.com/shopspring/decimal"
)

type createRateComponentRequest struct {
	Code          string              `json:"code"`
	Name          string              `json:"name"`
	Category      ratedomain.Category `json:"category"`
	Unit          ratedomain.Unit     `json:"unit"`
	Value         decimal.Decimal     `json:"value"`
	EffectiveFrom time.Time           `json:"effective_from"`
	EffectiveTo   *time.Time          `json:"effective_to"`
}

func (s *Server) CreateRateComponent(c *gin.Context) {
	var req createRateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	component, err := s.rateSvc.Create(c.Request.Context(), ratedomain.CreateRequest{
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		Category:      req.Category,
		Unit:          req.Unit,
		Value:         req.Value,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": component})
}

type supersedeRateComponentRequest struct {
	Value            decimal.Decimal `json:"value"`
	Name             string          `json:"name"`
	NewEffectiveFrom time.Time       `json:"new_effective_from"`
	ExpectedVersion  int32           `json:"expected_version"`
}

func (s *Server) SupersedeRateComponent(c *gin.Context) {
	var req supersedeRateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	component, err := s.rateSvc.Supersede(c.Request.Context(), ratedomain.SupersedeRequest{
		Code:             strings.TrimSpace(c.Param("code")),
		Value:            req.Value,
		Name:             strings.TrimSpace(req.Name),
		NewEffectiveFrom: req.NewEffectiveFrom,
		ExpectedVersion:  req.ExpectedVersion,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": component})
}

func (s *Server) RateComponentHistory(c *gin.Context) {
	history, err := s.rateSvc.History(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}

// ResolveRateComponents returns the component set effective at the
// given instant, defaulting to now.
func (s *Server) ResolveRateComponents(c *gin.Context) {
	at := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("at")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		at = parsed
	}

	components, err := s.rateSvc.ResolveAt(c.Request.Context(), at)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": components})
}
