// Package sx1261 sends commands to SX1261/SX1250 radios on a concentrator board.
//
// A transaction is one frame made of the op-code followed by the command payload. The radio needs
// BusyWait to settle its busy line before each transaction.
package sx1261

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/loragw/logging"
	"go.viam.com/loragw/spi"
)

const (
	// BusyWait is the guard interval before every transaction.
	BusyWait = time.Millisecond
	// MaxFrameSize is the longest frame, op-code included.
	MaxFrameSize = math.MaxUint8
	// MaxPayloadSize is the longest payload that fits a frame.
	MaxPayloadSize = MaxFrameSize - 1
)

// Transactor performs SX1261 command transactions. It holds no per-call state and may be shared.
type Transactor struct {
	logger logging.Logger
	clock  clock.Clock
}

// Option configures a Transactor.
type Option func(*Transactor)

// WithClock replaces the clock used for the busy-wait guard.
func WithClock(clk clock.Clock) Option {
	return func(t *Transactor) {
		t.clock = clk
	}
}

// New returns a Transactor that traces through logger.
func New(logger logging.Logger, opts ...Option) *Transactor {
	t := &Transactor{logger: logger, clock: clock.New()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var defaultTransactor = New(nil)

// Read runs a read command using a Transactor logging to the global logger.
func Read(ctx context.Context, conn spi.Conn, op OpCode, data []byte) error {
	return defaultTransactor.Read(ctx, conn, op, data)
}

// Write runs a write command using a Transactor logging to the global logger.
func Write(ctx context.Context, conn spi.Conn, op OpCode, payload []byte) error {
	return defaultTransactor.Write(ctx, conn, op, payload)
}

func (t *Transactor) log() logging.Logger {
	if t.logger == nil {
		return logging.Global()
	}
	return t.logger
}

// Frame returns the frame sent for op with payload.
func Frame(op OpCode, payload []byte) []byte {
	frame := make([]byte, 1+len(payload))
	frame[0] = byte(op)
	copy(frame[1:], payload)
	return frame
}

func checkArgs(conn spi.Conn, data []byte) error {
	if conn == nil {
		return errors.Wrap(spi.ErrIO, "no SPI connection")
	}
	if data == nil {
		return errors.Wrap(spi.ErrIO, "no data buffer")
	}
	if len(data) > MaxPayloadSize {
		return errors.Wrapf(spi.ErrIO, "payload of %d bytes exceeds %d", len(data), MaxPayloadSize)
	}
	return nil
}

// waitBusy blocks for BusyWait, or until ctx is done.
func (t *Transactor) waitBusy(ctx context.Context) error {
	timer := t.clock.Timer(BusyWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrapf(spi.ErrIO, "waiting for busy line: %v", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Write sends op followed by payload. An empty, non-nil payload sends the op-code alone.
func (t *Transactor) Write(ctx context.Context, conn spi.Conn, op OpCode, payload []byte) error {
	if err := checkArgs(conn, payload); err != nil {
		return errors.Wrapf(err, "sx1261 write %v", op)
	}
	if err := t.waitBusy(ctx); err != nil {
		return errors.Wrapf(err, "sx1261 write %v", op)
	}

	frame := Frame(op, payload)
	err := spi.Do(ctx, conn, spi.Transfer{
		Tx:          frame,
		SpeedHz:     spi.DefaultSpeedHz,
		BitsPerWord: spi.BitsPerWord,
	})
	if err != nil {
		t.log().Debugw("SPI write failure", "radio", "sx1261", "op", op, "error", err)
		return errors.Wrapf(err, "sx1261 write %v", op)
	}
	t.log().CDebugw(ctx, "SPI write success", "radio", "sx1261", "op", op, "frame", frame)
	return nil
}

// Read sends op followed by the current contents of data, and replaces data with the bytes clocked
// in after the op-code. data is left untouched on failure.
func (t *Transactor) Read(ctx context.Context, conn spi.Conn, op OpCode, data []byte) error {
	if err := checkArgs(conn, data); err != nil {
		return errors.Wrapf(err, "sx1261 read %v", op)
	}
	if err := t.waitBusy(ctx); err != nil {
		return errors.Wrapf(err, "sx1261 read %v", op)
	}

	frame := Frame(op, data)
	rx := make([]byte, len(frame))
	if err := spi.Do(ctx, conn, spi.Transfer{Tx: frame, Rx: rx}); err != nil {
		t.log().Debugw("SPI read failure", "radio", "sx1261", "op", op, "error", err)
		return errors.Wrapf(err, "sx1261 read %v", op)
	}
	copy(data, rx[1:])
	t.log().CDebugw(ctx, "SPI read success", "radio", "sx1261", "op", op, "frame", frame, "data", data)
	return nil
}
