package spi

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/loragw/logging"
)

// Names of the available SPI drivers.
const (
	DriverDevFS  = "devfs"
	DriverPeriph = "periph"
)

// Config describes the SPI device a concentrator is wired to.
type Config struct {
	// Driver is either "devfs" (the default) or "periph".
	Driver string `json:"driver,omitempty"`
	// Path overrides the device derived from Bus and ChipSelect, e.g. "/dev/spidev0.0".
	Path       string `json:"path,omitempty"`
	Bus        int    `json:"spi_bus"`
	ChipSelect int    `json:"chip_select"`
	// SpeedHz is the device clock rate. Defaults to DefaultSpeedHz.
	SpeedHz uint32 `json:"speed_hz,omitempty"`
	// Mode is the SPI mode, 0 through 3.
	Mode uint8 `json:"mode,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	switch conf.Driver {
	case "", DriverDevFS, DriverPeriph:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown SPI driver %q", conf.Driver))
	}
	if conf.Path == "" {
		if conf.Bus < 0 {
			return utils.NewConfigValidationError(path, errors.Errorf("spi_bus must be non-negative, got %d", conf.Bus))
		}
		if conf.ChipSelect < 0 {
			return utils.NewConfigValidationError(path, errors.Errorf("chip_select must be non-negative, got %d", conf.ChipSelect))
		}
	}
	if conf.Mode > 3 {
		return utils.NewConfigValidationError(path, errors.Errorf("mode must be between 0 and 3, got %d", conf.Mode))
	}
	return nil
}

func (conf *Config) driver() string {
	if conf.Driver == "" {
		return DriverDevFS
	}
	return conf.Driver
}

func (conf *Config) speedHz() uint32 {
	if conf.SpeedHz == 0 {
		return DefaultSpeedHz
	}
	return conf.SpeedHz
}

// DevicePath returns the device node the devfs driver opens.
func (conf *Config) DevicePath() string {
	if conf.Path != "" {
		return conf.Path
	}
	return fmt.Sprintf(devicePathFormat, conf.Bus, conf.ChipSelect)
}

// Open validates conf and opens the SPI device with the configured driver.
func Open(ctx context.Context, conf Config, logger logging.Logger) (Conn, error) {
	if err := conf.Validate("spi"); err != nil {
		return nil, err
	}
	switch conf.driver() {
	case DriverPeriph:
		return openPeriph(ctx, conf, logger.Sublogger(DriverPeriph))
	default:
		return openDevFS(ctx, conf, logger.Sublogger(DriverDevFS))
	}
}
