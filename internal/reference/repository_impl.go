package reference

import (
	"context"
	"fmt"
	"strings"

	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	"github.com/petroworks/pumpline/internal/clock"
	levydomain "github.com/petroworks/pumpline/internal/levy/domain"
	pbdomain "github.com/petroworks/pumpline/internal/pricebuildup/domain"
	"github.com/petroworks/pumpline/internal/reference/domain"
	setdomain "github.com/petroworks/pumpline/internal/settlement/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository serves master data from the reference tables. It backs
// the station directory, the delivery registry and the dealer
// directory consulted by the pricing and claim engines.
type Repository struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewRepository(db *gorm.DB, clk clock.Clock) *Repository {
	return &Repository{db: db, clock: clk}
}

func (r *Repository) RecordDelivery(ctx context.Context, req domain.RecordDeliveryRequest) (*domain.Delivery, error) {
	req.ConsignmentID = strings.TrimSpace(req.ConsignmentID)
	req.RouteID = strings.TrimSpace(req.RouteID)
	if req.ConsignmentID == "" || req.RouteID == "" {
		return nil, fmt.Errorf("%w: consignment_id and route_id are required", domain.ErrInvalidDelivery)
	}
	if !validProductType(req.ProductType) {
		return nil, fmt.Errorf("%w: unknown product type %q", domain.ErrInvalidDelivery, req.ProductType)
	}
	if !req.VolumeLitres.IsPositive() || req.KmActual.IsNegative() || req.UnitValue.IsNegative() {
		return nil, fmt.Errorf("%w: volume must be positive", domain.ErrInvalidDelivery)
	}
	if req.DeliveredAt.IsZero() {
		req.DeliveredAt = r.clock.Now()
	}

	delivery := domain.Delivery{
		ConsignmentID: req.ConsignmentID,
		RouteID:       req.RouteID,
		WindowID:      req.DeliveredAt.UTC().Format("2006-01"),
		ProductType:   req.ProductType,
		VolumeLitres:  req.VolumeLitres,
		KmActual:      req.KmActual,
		KmPlanned:     req.KmPlanned,
		UnitValue:     req.UnitValue,
		DeliveredAt:   req.DeliveredAt.UTC(),
		CreatedAt:     r.clock.Now(),
	}

	// Re-submission of the same consignment replaces the prior fact.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "consignment_id"}},
			UpdateAll: true,
		}).
		Create(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *Repository) GetDeliveryByID(ctx context.Context, consignmentID string) (*levydomain.DeliveryRecord, error) {
	var delivery domain.Delivery
	err := r.db.WithContext(ctx).
		Where("consignment_id = ?", consignmentID).
		Limit(1).
		Find(&delivery).Error
	if err != nil {
		return nil, err
	}
	if delivery.ConsignmentID == "" {
		return nil, nil
	}
	record := delivery.Record()
	return &record, nil
}

func (r *Repository) GetDeliveriesInWindow(ctx context.Context, windowID string) ([]levydomain.DeliveryRecord, error) {
	var deliveries []domain.Delivery
	err := r.db.WithContext(ctx).
		Where("window_id = ?", windowID).
		Order("delivered_at ASC").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}

	records := make([]levydomain.DeliveryRecord, 0, len(deliveries))
	for _, delivery := range deliveries {
		records = append(records, delivery.Record())
	}
	return records, nil
}

func (r *Repository) UpsertStation(ctx context.Context, station domain.Station) (*domain.Station, error) {
	station.ID = strings.TrimSpace(station.ID)
	station.DealerID = strings.TrimSpace(station.DealerID)
	if station.ID == "" || station.DealerID == "" {
		return nil, fmt.Errorf("%w: id and dealer_id are required", domain.ErrInvalidStation)
	}
	station.UpdatedAt = r.clock.Now()

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&station).Error
	if err != nil {
		return nil, err
	}
	return &station, nil
}

func (r *Repository) UpsertDealer(ctx context.Context, dealer domain.Dealer) (*domain.Dealer, error) {
	dealer.ID = strings.TrimSpace(dealer.ID)
	if dealer.ID == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidDealer)
	}
	dealer.UpdatedAt = r.clock.Now()

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&dealer).Error
	if err != nil {
		return nil, err
	}
	return &dealer, nil
}

func (r *Repository) ListStations(ctx context.Context) ([]domain.Station, error) {
	var stations []domain.Station
	err := r.db.WithContext(ctx).Order("id ASC").Find(&stations).Error
	return stations, err
}

func (r *Repository) ListDealers(ctx context.Context) ([]domain.Dealer, error) {
	var dealers []domain.Dealer
	err := r.db.WithContext(ctx).Order("id ASC").Find(&dealers).Error
	return dealers, err
}

func (r *Repository) GetActiveStations(ctx context.Context) ([]pbdomain.Station, error) {
	var stations []domain.Station
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&stations).Error
	if err != nil {
		return nil, err
	}

	out := make([]pbdomain.Station, 0, len(stations))
	for _, station := range stations {
		out = append(out, directoryView(station))
	}
	return out, nil
}

func (r *Repository) GetStationByID(ctx context.Context, id string) (*pbdomain.Station, error) {
	var station domain.Station
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&station).Error
	if err != nil {
		return nil, err
	}
	if station.ID == "" {
		return nil, nil
	}
	view := directoryView(station)
	return &view, nil
}

func (r *Repository) GetDealerCreditProfile(ctx context.Context, dealerID string) (*setdomain.CreditProfile, error) {
	var dealer domain.Dealer
	err := r.db.WithContext(ctx).
		Where("id = ?", dealerID).
		Limit(1).
		Find(&dealer).Error
	if err != nil {
		return nil, err
	}
	if dealer.ID == "" {
		return nil, nil
	}
	return &setdomain.CreditProfile{
		DealerID:       dealer.ID,
		PayableAccount: dealer.PayableAccount,
		Blocked:        dealer.Blocked,
	}, nil
}

func directoryView(station domain.Station) pbdomain.Station {
	return pbdomain.Station{
		ID:       station.ID,
		Name:     station.Name,
		DealerID: station.DealerID,
		Region:   station.Region,
		Active:   station.Active,
	}
}

func validProductType(p levydomain.ProductType) bool {
	switch p {
	case levydomain.ProductPMS, levydomain.ProductAGO, levydomain.ProductKerosene, levydomain.ProductLPG:
		return true
	default:
		return false
	}
}

// Interface conformance for the consuming engines.
var (
	_ claimdomain.DeliveryRegistry = (*Repository)(nil)
	_ pbdomain.StationDirectory    = (*Repository)(nil)
	_ setdomain.DealerDirectory    = (*Repository)(nil)
)
