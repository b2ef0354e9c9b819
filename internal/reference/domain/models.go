package domain

import (
	"context"
	"errors"
	"time"

	levydomain "github.com/petroworks/pumpline/internal/levy/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDelivery = errors.New("invalid_delivery")
	ErrInvalidStation  = errors.New("invalid_station")
	ErrInvalidDealer   = errors.New("invalid_dealer")
)

// Station is a retail outlet under the OMC's licence. The directory is
// maintained by the commercial team, not by the pricing engine.
type Station struct {
	ID        string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	DealerID  string    `json:"dealer_id" gorm:"type:varchar(64);not null;index:ix_station_dealer"`
	Region    string    `json:"region" gorm:"type:varchar(64)"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Station) TableName() string { return "stations" }

// Dealer carries the payee standing consulted before settlement.
type Dealer struct {
	ID             string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name           string    `json:"name" gorm:"type:text;not null"`
	PayableAccount string    `json:"payable_account" gorm:"type:varchar(64)"`
	Blocked        bool      `json:"blocked" gorm:"not null;default:false"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Dealer) TableName() string { return "dealers" }

// Delivery is an ingested delivery fact keyed by consignment. WindowID
// is derived from DeliveredAt at ingest so window scans stay indexed.
type Delivery struct {
	ConsignmentID string                 `json:"consignment_id" gorm:"type:varchar(64);primaryKey"`
	RouteID       string                 `json:"route_id" gorm:"type:varchar(64);not null"`
	WindowID      string                 `json:"window_id" gorm:"type:varchar(16);not null;index:ix_delivery_window"`
	ProductType   levydomain.ProductType `json:"product_type" gorm:"type:varchar(16);not null"`
	VolumeLitres  decimal.Decimal        `json:"volume_litres" gorm:"type:decimal(20,3);not null"`
	KmActual      decimal.Decimal        `json:"km_actual" gorm:"type:decimal(12,3);not null"`
	KmPlanned     decimal.Decimal        `json:"km_planned" gorm:"type:decimal(12,3);not null"`
	UnitValue     decimal.Decimal        `json:"unit_value" gorm:"type:decimal(20,6);not null"`
	DeliveredAt   time.Time              `json:"delivered_at" gorm:"not null"`
	CreatedAt     time.Time              `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Delivery) TableName() string { return "delivery_records" }

// Record converts the stored row to the claim engine's view.
func (d Delivery) Record() levydomain.DeliveryRecord {
	return levydomain.DeliveryRecord{
		ConsignmentID: d.ConsignmentID,
		RouteID:       d.RouteID,
		ProductType:   d.ProductType,
		VolumeLitres:  d.VolumeLitres,
		KmActual:      d.KmActual,
		KmPlanned:     d.KmPlanned,
		UnitValue:     d.UnitValue,
		DeliveredAt:   d.DeliveredAt,
	}
}

type RecordDeliveryRequest struct {
	ConsignmentID string                 `json:"consignment_id"`
	RouteID       string                 `json:"route_id"`
	ProductType   levydomain.ProductType `json:"product_type"`
	VolumeLitres  decimal.Decimal        `json:"volume_litres"`
	KmActual      decimal.Decimal        `json:"km_actual"`
	KmPlanned     decimal.Decimal        `json:"km_planned"`
	UnitValue     decimal.Decimal        `json:"unit_value"`
	DeliveredAt   time.Time              `json:"delivered_at"`
}

// Repository is the reference-data surface: master data the pricing
// and claim engines read but never own.
type Repository interface {
	RecordDelivery(ctx context.Context, req RecordDeliveryRequest) (*Delivery, error)
	UpsertStation(ctx context.Context, station Station) (*Station, error)
	UpsertDealer(ctx context.Context, dealer Dealer) (*Dealer, error)
	ListStations(ctx context.Context) ([]Station, error)
	ListDealers(ctx context.Context) ([]Dealer, error)
}
