package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TierLimits bounds a subscription tier. A negative cap means unlimited.
type TierLimits struct {
	MaxAthletes       int  `mapstructure:"maxAthletes" json:"max_athletes"`
	MaxAdmins         int  `mapstructure:"maxAdmins" json:"max_admins"`
	CustomBranding    bool `mapstructure:"customBranding" json:"custom_branding"`
	AdvancedReporting bool `mapstructure:"advancedReporting" json:"advanced_reporting"`
}

// TierConfig maps tier names to limits.
type TierConfig struct {
	Free     TierLimits `mapstructure:"free"`
	Standard TierLimits `mapstructure:"standard"`
	Premium  TierLimits `mapstructure:"premium"`
}

func DefaultTierConfig() TierConfig {
	return TierConfig{
		Free:     TierLimits{MaxAthletes: 7, MaxAdmins: 2},
		Standard: TierLimits{MaxAthletes: 30, MaxAdmins: 5, CustomBranding: true},
		Premium:  TierLimits{MaxAthletes: -1, MaxAdmins: -1, CustomBranding: true, AdvancedReporting: true},
	}
}

// TierConfigHolder serves the current tier table and hot-reloads it from disk.
type TierConfigHolder struct {
	current atomic.Value // holds TierConfig
}

func NewTierConfigHolder() (*TierConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("tiers")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/stride/config")
	v.AddConfigPath("/etc/stride")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STRIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultTierConfig()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	} else {
		if err := v.UnmarshalKey("tiers", &cfg); err != nil {
			return nil, err
		}
		if err := validateTierConfig(cfg); err != nil {
			return nil, err
		}
	}

	holder := &TierConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultTierConfig()
		if err := v.UnmarshalKey("tiers", &updated); err != nil {
			log.Printf("[tier-config] reload failed: %v", err)
			return
		}
		if err := validateTierConfig(updated); err != nil {
			log.Printf("[tier-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[tier-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticTierConfigHolder serves a fixed tier table with no file watching.
func NewStaticTierConfigHolder(cfg TierConfig) *TierConfigHolder {
	h := &TierConfigHolder{}
	h.current.Store(cfg)
	return h
}

func (h *TierConfigHolder) Get() TierConfig {
	return h.current.Load().(TierConfig)
}

func validateTierConfig(cfg TierConfig) error {
	if cfg.Free.MaxAthletes == 0 || cfg.Free.MaxAdmins == 0 {
		return errors.New("tiers.free caps cannot be zero")
	}
	if cfg.Standard.MaxAthletes == 0 || cfg.Standard.MaxAdmins == 0 {
		return errors.New("tiers.standard caps cannot be zero")
	}
	return nil
}
