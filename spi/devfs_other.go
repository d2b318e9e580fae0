//go:build !linux && !freebsd

package spi

import (
	"context"
	"runtime"

	"github.com/pkg/errors"

	"go.viam.com/loragw/logging"
)

const devicePathFormat = "/dev/spidev%d.%d"

func openDevFS(ctx context.Context, conf Config, logger logging.Logger) (Conn, error) {
	return nil, errors.Errorf("the %s SPI driver is not available on %s", DriverDevFS, runtime.GOOS)
}
