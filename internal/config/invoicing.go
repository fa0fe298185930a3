package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NumberingConfig controls invoice number generation.
type NumberingConfig struct {
	DefaultPrefix string `mapstructure:"defaultPrefix"`
	PrefixLength  int    `mapstructure:"prefixLength"`
	SerialWidth   int    `mapstructure:"serialWidth"`
	KeyPrefix     string `mapstructure:"keyPrefix"`
	MaxAttempts   int    `mapstructure:"maxAttempts"`
}

// CurrencyConfig holds the fallback USD->INR exchange rate.
type CurrencyConfig struct {
	USDINRRate float64 `mapstructure:"usdInrRate"`
}

// InvoicingConfig is the hot-reloadable part of the configuration.
type InvoicingConfig struct {
	Numbering NumberingConfig `mapstructure:"numbering"`
	Currency  CurrencyConfig  `mapstructure:"currency"`
}

// ExchangeRate returns the configured default rate as a decimal.
func (c InvoicingConfig) ExchangeRate() decimal.Decimal {
	return decimal.NewFromFloat(c.Currency.USDINRRate)
}

func DefaultInvoicingConfig() InvoicingConfig {
	return InvoicingConfig{
		Numbering: NumberingConfig{
			DefaultPrefix: "CUST",
			PrefixLength:  4,
			SerialWidth:   4,
			KeyPrefix:     "invoiceSerial_",
			MaxAttempts:   8,
		},
		Currency: CurrencyConfig{
			USDINRRate: 83,
		},
	}
}

type InvoicingConfigHolder struct {
	current atomic.Value // holds InvoicingConfig
}

// NewStaticInvoicingConfigHolder wraps a fixed config, mostly for tests.
func NewStaticInvoicingConfigHolder(cfg InvoicingConfig) *InvoicingConfigHolder {
	holder := &InvoicingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewInvoicingConfigHolder reads invoicing.yml and watches it for changes.
// A missing file is not an error; defaults apply.
func NewInvoicingConfigHolder(log *zap.Logger) (*InvoicingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/invoicegen")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INVOICEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	holder, err := newInvoicingConfigHolder(v)
	if err != nil {
		return nil, err
	}

	if fileFound {
		log = log.Named("config.invoicing")
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			if err := holder.reload(v); err != nil {
				log.Warn("invoicing config reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			log.Info("invoicing config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func newInvoicingConfigHolder(v *viper.Viper) (*InvoicingConfigHolder, error) {
	applyInvoicingDefaults(v)

	holder := &InvoicingConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}
	return holder, nil
}

func (h *InvoicingConfigHolder) Get() InvoicingConfig {
	return h.current.Load().(InvoicingConfig)
}

func (h *InvoicingConfigHolder) reload(v *viper.Viper) error {
	var cfg InvoicingConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	if err := validateInvoicingConfig(cfg); err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}

func applyInvoicingDefaults(v *viper.Viper) {
	defaults := DefaultInvoicingConfig()
	v.SetDefault("numbering.defaultPrefix", defaults.Numbering.DefaultPrefix)
	v.SetDefault("numbering.prefixLength", defaults.Numbering.PrefixLength)
	v.SetDefault("numbering.serialWidth", defaults.Numbering.SerialWidth)
	v.SetDefault("numbering.keyPrefix", defaults.Numbering.KeyPrefix)
	v.SetDefault("numbering.maxAttempts", defaults.Numbering.MaxAttempts)
	v.SetDefault("currency.usdInrRate", defaults.Currency.USDINRRate)
}

func validateInvoicingConfig(cfg InvoicingConfig) error {
	n := cfg.Numbering
	if strings.TrimSpace(n.DefaultPrefix) == "" {
		return errors.New("numbering.defaultPrefix cannot be empty")
	}
	if n.PrefixLength <= 0 {
		return fmt.Errorf("numbering.prefixLength must be positive, got %d", n.PrefixLength)
	}
	if len(n.DefaultPrefix) > n.PrefixLength {
		return fmt.Errorf("numbering.defaultPrefix %q exceeds prefixLength %d", n.DefaultPrefix, n.PrefixLength)
	}
	if n.SerialWidth <= 0 {
		return fmt.Errorf("numbering.serialWidth must be positive, got %d", n.SerialWidth)
	}
	if strings.TrimSpace(n.KeyPrefix) == "" {
		return errors.New("numbering.keyPrefix cannot be empty")
	}
	if n.MaxAttempts <= 0 {
		return fmt.Errorf("numbering.maxAttempts must be positive, got %d", n.MaxAttempts)
	}
	if cfg.Currency.USDINRRate <= 0 {
		return errors.New("currency.usdInrRate must be positive")
	}
	return nil
}
