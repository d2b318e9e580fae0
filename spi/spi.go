// Package spi is the SPI channel used to talk to the radios of a LoRa concentrator board.
//
// A Conn is opened once by the caller and borrowed by the radio transactors for a single
// transaction at a time. Every driver reports the number of bytes moved by a transfer so that the
// success check lives in one place, Do.
package spi

import (
	"context"

	"github.com/pkg/errors"
)

const (
	// DefaultSpeedHz is the clock rate used for radio write transactions.
	DefaultSpeedHz = 2000000
	// BitsPerWord is the word size used by every radio transaction.
	BitsPerWord = 8
)

// ErrIO is the single failure reported by a radio transaction. A failed transaction leaves the
// register state unknown: short transfers, driver errors and missing arguments are not told apart.
var ErrIO = errors.New("spi transaction failed")

// Transfer describes one chip-select-bounded SPI exchange.
type Transfer struct {
	// Tx is clocked out. Its length is the length of the transfer.
	Tx []byte
	// Rx receives the clocked-in bytes when set, and must then be as long as Tx. A nil Rx is a
	// write-only transfer.
	Rx []byte
	// SpeedHz overrides the device clock rate for this transfer. Zero keeps the device default.
	SpeedHz uint32
	// BitsPerWord overrides the device word size for this transfer. Zero keeps the device default.
	BitsPerWord uint8
}

// Conn is an open SPI device.
type Conn interface {
	// Transfer performs the exchange and returns the number of bytes the driver reports as
	// transferred.
	Transfer(ctx context.Context, xfer Transfer) (int, error)
	// Close releases the device.
	Close() error
}

// Do performs xfer on conn and succeeds only when the driver reports the full frame transferred.
// Every failure satisfies errors.Is(err, ErrIO).
func Do(ctx context.Context, conn Conn, xfer Transfer) error {
	if conn == nil {
		return errors.Wrap(ErrIO, "no SPI connection")
	}
	if xfer.Rx != nil && len(xfer.Rx) != len(xfer.Tx) {
		return errors.Wrapf(ErrIO, "rx buffer is %d bytes for a %d byte transfer", len(xfer.Rx), len(xfer.Tx))
	}
	n, err := conn.Transfer(ctx, xfer)
	if err != nil {
		return errors.Wrapf(ErrIO, "%v", err)
	}
	if n != len(xfer.Tx) {
		return errors.Wrapf(ErrIO, "transferred %d of %d bytes", n, len(xfer.Tx))
	}
	return nil
}
