package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	"github.com/petroworks/pumpline/internal/config"
	eqdomain "github.com/petroworks/pumpline/internal/equalisation/domain"
	"github.com/petroworks/pumpline/internal/observability"
	obslogger "github.com/petroworks/pumpline/internal/observability/logger"
	obsmetrics "github.com/petroworks/pumpline/internal/observability/metrics"
	obstracing "github.com/petroworks/pumpline/internal/observability/tracing"
	pbdomain "github.com/petroworks/pumpline/internal/pricebuildup/domain"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	"github.com/petroworks/pumpline/internal/ratelimit"
	recdomain "github.com/petroworks/pumpline/internal/reconciliation/domain"
	refdomain "github.com/petroworks/pumpline/internal/reference/domain"
	setdomain "github.com/petroworks/pumpline/internal/settlement/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	genID           *snowflake.Node
	rateSvc         ratedomain.Service
	equalisationSvc eqdomain.Service
	priceSvc        pbdomain.Service
	reconSvc        recdomain.Service
	claimSvc        claimdomain.Service
	settlementSvc   setdomain.Service
	referenceRepo   refdomain.Repository
	ingestLimiter   *ratelimit.DeliveryIngestLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	GenID           *snowflake.Node
	RateSvc         ratedomain.Service
	EqualisationSvc eqdomain.Service
	PriceSvc        pbdomain.Service
	ReconSvc        recdomain.Service
	ClaimSvc        claimdomain.Service
	SettlementSvc   setdomain.Service
	ReferenceRepo   refdomain.Repository
	IngestLimiter   *ratelimit.DeliveryIngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		genID:           p.GenID,
		rateSvc:         p.RateSvc,
		equalisationSvc: p.EqualisationSvc,
		priceSvc:        p.PriceSvc,
		reconSvc:        p.ReconSvc,
		claimSvc:        p.ClaimSvc,
		settlementSvc:   p.SettlementSvc,
		referenceRepo:   p.ReferenceRepo,
		ingestLimiter:   p.IngestLimiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	prices := v1.Group("/prices")
	prices.POST("/compute", s.ComputePrice)
	prices.POST("/bulk-compute", s.BulkCompute)
	prices.POST("/validate", s.ValidateBreakdown)
	prices.GET("/latest", s.LatestBreakdown)

	rates := v1.Group("/rate-components")
	rates.POST("", s.CreateRateComponent)
	rates.GET("", s.ResolveRateComponents)
	rates.POST("/:code/supersede", s.SupersedeRateComponent)
	rates.GET("/:code/history", s.RateComponentHistory)

	points := v1.Group("/equalisation-points")
	points.POST("", s.CreateEqualisationPoint)
	points.GET("/:route_id/history", s.EqualisationHistory)

	recs := v1.Group("/reconciliations")
	recs.POST("", s.Reconcile)
	recs.GET("/:consignment_id", s.GetReconciliation)
	recs.POST("/:consignment_id/dispute", s.DisputeReconciliation)
	recs.POST("/:consignment_id/resolve", s.ResolveReconciliation)
	recs.POST("/:consignment_id/notes", s.AddReconciliationNote)

	claims := v1.Group("/claims")
	claims.POST("", s.CreateClaim)
	claims.GET("", s.ListClaims)
	claims.GET("/windows/:window_id/summary", s.WindowSummary)
	claims.GET("/:id", s.GetClaim)
	claims.POST("/:id/transition", s.TransitionClaim)
	claims.GET("/:id/audit", s.ClaimAuditTrail)
	claims.GET("/:id/anomalies", s.ClaimAnomalies)
	claims.POST("/:id/anomalies", s.AddClaimAnomaly)
	claims.POST("/:id/anomalies/:anomaly_id/resolve", s.ResolveClaimAnomaly)

	settlements := v1.Group("/settlements")
	settlements.POST("", s.Settle)
	settlements.GET("/:id", s.GetSettlement)
	settlements.GET("/windows/:window_id", s.SettlementsByWindow)

	deliveries := v1.Group("/deliveries")
	deliveries.POST("", s.RecordDelivery)

	stations := v1.Group("/stations")
	stations.PUT("/:id", s.UpsertStation)
	stations.GET("", s.ListStations)

	dealers := v1.Group("/dealers")
	dealers.PUT("/:id", s.UpsertDealer)
	dealers.GET("", s.ListDealers)
}

func parseID(c *gin.Context, param string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(param))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return 0, false
	}
	return id, true
}

func snowflakeFromString(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
