package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// PricingConfigHolder serves the pricing tunables in force. The env
// values from Load seed the defaults; a pricing.yml overrides them and
// is hot-reloaded on change.
type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

type pricingFile struct {
	PriceFloor             float64 `mapstructure:"priceFloor"`
	PriceCeiling           float64 `mapstructure:"priceCeiling"`
	DefaultTariff          float64 `mapstructure:"defaultTariff"`
	BaseTolerance          float64 `mapstructure:"baseTolerance"`
	MaxClaimFraction       float64 `mapstructure:"maxClaimFraction"`
	SubmissionDeadlineDays int     `mapstructure:"submissionDeadlineDays"`
}

func NewPricingConfigHolder(cfg Config) (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/pumpline/config") // Volume-mounted config
	v.AddConfigPath("/etc/pumpline")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("PUMPLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bootstrap := cfg.Pricing
	v.SetDefault("pricing.priceFloor", bootstrap.PriceFloor.InexactFloat64())
	v.SetDefault("pricing.priceCeiling", bootstrap.PriceCeiling.InexactFloat64())
	v.SetDefault("pricing.defaultTariff", bootstrap.DefaultTariff.InexactFloat64())
	v.SetDefault("pricing.baseTolerance", bootstrap.BaseTolerance.InexactFloat64())
	v.SetDefault("pricing.maxClaimFraction", bootstrap.MaxClaimFraction.InexactFloat64())
	v.SetDefault("pricing.submissionDeadlineDays", bootstrap.SubmissionDeadlineDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
	}

	pricing, err := unmarshalPricing(v)
	if err != nil {
		return nil, err
	}

	holder := &PricingConfigHolder{}
	holder.current.Store(pricing)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalPricing(v)
		if err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// StaticPricingHolder pins a fixed configuration. No file is read and
// nothing is watched.
func StaticPricingHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func unmarshalPricing(v *viper.Viper) (PricingConfig, error) {
	var raw pricingFile
	if err := v.UnmarshalKey("pricing", &raw); err != nil {
		return PricingConfig{}, err
	}
	cfg := PricingConfig{
		PriceFloor:             decimal.NewFromFloat(raw.PriceFloor),
		PriceCeiling:           decimal.NewFromFloat(raw.PriceCeiling),
		DefaultTariff:          decimal.NewFromFloat(raw.DefaultTariff),
		BaseTolerance:          decimal.NewFromFloat(raw.BaseTolerance),
		MaxClaimFraction:       decimal.NewFromFloat(raw.MaxClaimFraction),
		SubmissionDeadlineDays: raw.SubmissionDeadlineDays,
	}
	if err := validatePricingConfig(cfg); err != nil {
		return PricingConfig{}, err
	}
	return cfg, nil
}

func validatePricingConfig(cfg PricingConfig) error {
	if !cfg.PriceFloor.IsPositive() {
		return errors.New("pricing.priceFloor must be positive")
	}
	if !cfg.PriceCeiling.GreaterThan(cfg.PriceFloor) {
		return errors.New("pricing.priceCeiling must exceed the floor")
	}
	if !cfg.DefaultTariff.IsPositive() {
		return errors.New("pricing.defaultTariff must be positive")
	}
	if !cfg.BaseTolerance.IsPositive() {
		return errors.New("pricing.baseTolerance must be positive")
	}
	if !cfg.MaxClaimFraction.IsPositive() || cfg.MaxClaimFraction.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("pricing.maxClaimFraction must be in (0, 1]")
	}
	if cfg.SubmissionDeadlineDays < 0 {
		return errors.New("pricing.submissionDeadlineDays cannot be negative")
	}
	return nil
}
