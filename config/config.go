// Package config loads the bridge's TOML configuration file, with
// environment-variable overrides for deployment tweaks.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds everything the bridge needs to run.
type Config struct {
	// Broker connection.
	Hostname string
	Port     int
	Username string
	Password string
	ClientID string

	// Printer is the character device node, e.g. /dev/usb/lp0. Leave it
	// empty and set the USB IDs to talk raw USB instead.
	Printer      string
	USBVendorID  uint16
	USBProductID uint16

	// Prefix is prepended to all bus topics.
	Prefix string

	// StatusCheckInterval is the gap between printer status polls.
	StatusCheckInterval time.Duration
}

// UseUSB reports whether the raw-USB transport is selected.
func (c *Config) UseUSB() bool {
	return c.Printer == ""
}

const envPrefix = "ESCPOS_BRIDGE"

// Load reads the TOML file at path. Any key can be overridden through an
// ESCPOS_BRIDGE_* environment variable.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("port", 8883)
	v.SetDefault("status_check_interval", 5.0)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	vendor, err := parseHexID(v.GetString("usb_vendor_id"))
	if err != nil {
		return nil, fmt.Errorf("config: usb_vendor_id: %w", err)
	}
	product, err := parseHexID(v.GetString("usb_product_id"))
	if err != nil {
		return nil, fmt.Errorf("config: usb_product_id: %w", err)
	}

	cfg := &Config{
		Hostname:            v.GetString("hostname"),
		Port:                v.GetInt("port"),
		Username:            v.GetString("username"),
		Password:            v.GetString("password"),
		ClientID:            v.GetString("client_id"),
		Printer:             v.GetString("printer"),
		USBVendorID:         vendor,
		USBProductID:        product,
		Prefix:              v.GetString("prefix"),
		StatusCheckInterval: time.Duration(v.GetFloat64("status_check_interval") * float64(time.Second)),
	}

	if cfg.ClientID == "" {
		cfg.ClientID = "escpos-bridge-" + uuid.NewString()[:8]
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Hostname == "" {
		missing = append(missing, "hostname")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required keys: %s", strings.Join(missing, ", "))
	}

	hasUSB := c.USBVendorID != 0 || c.USBProductID != 0
	switch {
	case c.Printer == "" && !hasUSB:
		return errors.New("either printer or usb_vendor_id/usb_product_id must be set")
	case c.Printer != "" && hasUSB:
		return errors.New("printer and usb_vendor_id/usb_product_id are mutually exclusive")
	case hasUSB && (c.USBVendorID == 0 || c.USBProductID == 0):
		return errors.New("usb_vendor_id and usb_product_id must both be set")
	}

	if c.StatusCheckInterval <= 0 {
		return errors.New("status_check_interval must be positive")
	}
	return nil
}

// parseHexID parses a USB vendor or product ID like "04b8" or "0x04b8".
func parseHexID(s string) (uint16, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}
