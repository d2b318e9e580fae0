package spi

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	periphspi "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"go.viam.com/loragw/logging"
)

var (
	hostInitOnce sync.Once
	errHostInit  error
)

// periphConn drives the device through periph.io. The port is connected once at open, so the
// clock rate and mode chosen then apply to every transfer; per-transfer overrides are ignored.
type periphConn struct {
	mu     sync.Mutex
	name   string
	port   periphspi.PortCloser
	conn   periphspi.Conn
	logger logging.Logger
}

// periphPortName returns the spireg name of the configured device, e.g. "SPI0.1".
func (conf *Config) periphPortName() string {
	if conf.Path != "" {
		return conf.Path
	}
	return fmt.Sprintf("SPI%d.%d", conf.Bus, conf.ChipSelect)
}

func openPeriph(ctx context.Context, conf Config, logger logging.Logger) (Conn, error) {
	hostInitOnce.Do(func() {
		_, errHostInit = host.Init()
	})
	if errHostInit != nil {
		return nil, errors.Wrap(errHostInit, "initializing periph.io host drivers")
	}

	name := conf.periphPortName()
	port, err := spireg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	conn, err := port.Connect(physic.Hertz*physic.Frequency(conf.speedHz()), periphspi.Mode(conf.Mode), BitsPerWord)
	if err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "connecting to %s", name), port.Close())
	}
	logger.CDebugw(ctx, "opened SPI port", "name", name, "mode", conf.Mode, "speed_hz", conf.speedHz())
	return &periphConn{name: name, port: port, conn: conn, logger: logger}, nil
}

// Transfer runs one Tx. periph.io does not report a byte count, so success means the whole frame.
func (c *periphConn) Transfer(ctx context.Context, xfer Transfer) (int, error) {
	if len(xfer.Tx) == 0 {
		return 0, errors.New("empty SPI transfer")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.Tx(xfer.Tx, xfer.Rx); err != nil {
		return -1, errors.Wrapf(err, "transfer on %s", c.name)
	}
	return len(xfer.Tx), nil
}

func (c *periphConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port.Close()
}
