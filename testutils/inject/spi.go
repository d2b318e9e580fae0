// Package inject provides function-field doubles for the concentrator SPI interfaces.
package inject

import (
	"context"

	"go.uber.org/atomic"

	"go.viam.com/loragw/spi"
)

// SPIConn is an injected spi.Conn.
type SPIConn struct {
	spi.Conn
	TransferFunc func(ctx context.Context, xfer spi.Transfer) (int, error)
	CloseFunc    func() error

	transferCount atomic.Int64
}

// Transfer calls the injected TransferFunc or the real version.
func (s *SPIConn) Transfer(ctx context.Context, xfer spi.Transfer) (int, error) {
	s.transferCount.Inc()
	if s.TransferFunc == nil {
		return s.Conn.Transfer(ctx, xfer)
	}
	return s.TransferFunc(ctx, xfer)
}

// Close calls the injected CloseFunc or the real version.
func (s *SPIConn) Close() error {
	if s.CloseFunc == nil {
		return s.Conn.Close()
	}
	return s.CloseFunc()
}

// TransferCount returns how many times Transfer has been called.
func (s *SPIConn) TransferCount() int {
	return int(s.transferCount.Load())
}

// NewRecordingSPIConn returns an SPIConn that records a copy of every transfer it is handed and
// answers with reply. reply receives the transmitted frame and returns the bytes clocked back in
// and the byte count to report. A nil reply echoes the frame and reports it fully transferred.
func NewRecordingSPIConn(reply func(tx []byte) ([]byte, int)) (*SPIConn, *[]spi.Transfer) {
	var recorded []spi.Transfer
	conn := &SPIConn{}
	conn.TransferFunc = func(ctx context.Context, xfer spi.Transfer) (int, error) {
		recorded = append(recorded, spi.Transfer{
			Tx:          append([]byte(nil), xfer.Tx...),
			Rx:          xfer.Rx,
			SpeedHz:     xfer.SpeedHz,
			BitsPerWord: xfer.BitsPerWord,
		})
		rx, n := append([]byte(nil), xfer.Tx...), len(xfer.Tx)
		if reply != nil {
			rx, n = reply(xfer.Tx)
		}
		if xfer.Rx != nil {
			copy(xfer.Rx, rx)
		}
		return n, nil
	}
	conn.CloseFunc = func() error { return nil }
	return conn, &recorded
}
