// Package sx125x reads and writes the registers of SX1255/SX1257 radios on a concentrator board.
//
// Every transaction is a single 3-byte frame: the mux target selecting the radio, the register
// address with the access bit on top, and the data byte.
package sx125x

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/loragw/logging"
	"go.viam.com/loragw/spi"
)

const (
	readAccess  = 0x00
	writeAccess = 0x80
	addressMask = 0x7F

	frameSize = 3
)

// Transactor performs SX125x register transactions. It holds no per-call state and may be shared.
type Transactor struct {
	logger logging.Logger
}

// New returns a Transactor that traces through logger.
func New(logger logging.Logger) *Transactor {
	return &Transactor{logger: logger}
}

var defaultTransactor = &Transactor{}

// Read reads a register using a Transactor logging to the global logger.
func Read(ctx context.Context, conn spi.Conn, mux, addr byte) (byte, error) {
	return defaultTransactor.Read(ctx, conn, mux, addr)
}

// Write writes a register using a Transactor logging to the global logger.
func Write(ctx context.Context, conn spi.Conn, mux, addr, data byte) error {
	return defaultTransactor.Write(ctx, conn, mux, addr, data)
}

func (t *Transactor) log() logging.Logger {
	if t.logger == nil {
		return logging.Global()
	}
	return t.logger
}

// Frame returns the frame sent for a transaction on addr. The top bit of addr is dropped.
func Frame(mux, addr byte, write bool, data byte) [frameSize]byte {
	access := byte(readAccess)
	if write {
		access = writeAccess
	}
	return [frameSize]byte{mux, access | (addr & addressMask), data}
}

// Write sets register addr of the radio selected by mux to data.
func (t *Transactor) Write(ctx context.Context, conn spi.Conn, mux, addr, data byte) error {
	if conn == nil {
		return errors.Wrap(spi.ErrIO, "sx125x write: no SPI connection")
	}
	frame := Frame(mux, addr, true, data)
	err := spi.Do(ctx, conn, spi.Transfer{
		Tx:          frame[:],
		SpeedHz:     spi.DefaultSpeedHz,
		BitsPerWord: spi.BitsPerWord,
	})
	if err != nil {
		t.log().Debugw("SPI write failure", "radio", "sx125x", "mux", mux, "addr", addr&addressMask, "error", err)
		return errors.Wrapf(err, "sx125x write register 0x%02x", addr&addressMask)
	}
	t.log().CDebugw(ctx, "SPI write", "radio", "sx125x", "frame", frame)
	return nil
}

// Read returns register addr of the radio selected by mux.
func (t *Transactor) Read(ctx context.Context, conn spi.Conn, mux, addr byte) (byte, error) {
	if conn == nil {
		return 0, errors.Wrap(spi.ErrIO, "sx125x read: no SPI connection")
	}
	frame := Frame(mux, addr, false, 0x00)
	var rx [frameSize]byte
	if err := spi.Do(ctx, conn, spi.Transfer{Tx: frame[:], Rx: rx[:]}); err != nil {
		t.log().Debugw("SPI read failure", "radio", "sx125x", "mux", mux, "addr", addr&addressMask, "error", err)
		return 0, errors.Wrapf(err, "sx125x read register 0x%02x", addr&addressMask)
	}
	t.log().CDebugw(ctx, "SPI read", "radio", "sx125x", "frame", frame, "data", rx[frameSize-1])
	return rx[frameSize-1], nil
}
