package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	levydomain "github.com/petroworks/pumpline/internal/levy/domain"
	refdomain "github.com/petroworks/pumpline/internal/reference/domain"
	"github.com/shopspring/decimal"
)

type recordDeliveryRequest struct {
	ConsignmentID string `json:"consignment_id"`
	RouteID       string `json:"route_id"`
	ProductType   string `json:"product_type"`
	VolumeLitres  string `json:"volume_litres"`
	KmActual      string `json:"km_actual"`
	KmPlanned     string `json:"km_planned"`
	UnitValue     string `json:"unit_value"`
	DeliveredAt   string `json:"delivered_at"`
}

func (s *Server) RecordDelivery(c *gin.Context) {
	var req recordDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	volume, err := decimal.NewFromString(req.VolumeLitres)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	kmActual, err := decimal.NewFromString(req.KmActual)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	kmPlanned := decimal.Zero
	if req.KmPlanned != "" {
		if kmPlanned, err = decimal.NewFromString(req.KmPlanned); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}
	unitValue, err := decimal.NewFromString(req.UnitValue)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var deliveredAt time.Time
	if req.DeliveredAt != "" {
		if deliveredAt, err = time.Parse(time.RFC3339, req.DeliveredAt); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	ctx := c.Request.Context()
	if s.ingestLimiter.Enabled() {
		if allowed, err := s.ingestLimiter.AllowIngest(ctx); err != nil || !allowed {
			AbortWithError(c, ErrRateLimited)
			return
		}
		if allowed, err := s.ingestLimiter.AllowRoute(ctx, req.RouteID); err != nil || !allowed {
			AbortWithError(c, ErrRateLimited)
			return
		}
		token, locked, err := s.ingestLimiter.TryLockConsignment(ctx, req.ConsignmentID)
		if err != nil || !locked {
			AbortWithError(c, ErrRateLimited)
			return
		}
		defer s.ingestLimiter.ReleaseConsignment(ctx, req.ConsignmentID, token)
	}

	delivery, err := s.referenceRepo.RecordDelivery(ctx, refdomain.RecordDeliveryRequest{
		ConsignmentID: req.ConsignmentID,
		RouteID:       req.RouteID,
		ProductType:   levydomain.ProductType(req.ProductType),
		VolumeLitres:  volume,
		KmActual:      kmActual,
		KmPlanned:     kmPlanned,
		UnitValue:     unitValue,
		DeliveredAt:   deliveredAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": delivery})
}

type upsertStationRequest struct {
	Name     string `json:"name"`
	DealerID string `json:"dealer_id"`
	Region   string `json:"region"`
	Active   *bool  `json:"active"`
}

func (s *Server) UpsertStation(c *gin.Context) {
	var req upsertStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	station, err := s.referenceRepo.UpsertStation(c.Request.Context(), refdomain.Station{
		ID:       c.Param("id"),
		Name:     req.Name,
		DealerID: req.DealerID,
		Region:   req.Region,
		Active:   active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": station})
}

func (s *Server) ListStations(c *gin.Context) {
	stations, err := s.referenceRepo.ListStations(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stations})
}

type upsertDealerRequest struct {
	Name           string `json:"name"`
	PayableAccount string `json:"payable_account"`
	Blocked        bool   `json:"blocked"`
}

func (s *Server) UpsertDealer(c *gin.Context) {
	var req upsertDealerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	dealer, err := s.referenceRepo.UpsertDealer(c.Request.Context(), refdomain.Dealer{
		ID:             c.Param("id"),
		Name:           req.Name,
		PayableAccount: req.PayableAccount,
		Blocked:        req.Blocked,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dealer})
}

func (s *Server) ListDealers(c *gin.Context) {
	dealers, err := s.referenceRepo.ListDealers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dealers})
}
