//go:build linux

package spi

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"go.viam.com/test"

	"go.viam.com/loragw/logging"
)

func TestRequestCodes(t *testing.T) {
	test.That(t, unsafe.Sizeof(spiIocTransfer{}), test.ShouldEqual, uintptr(32))
	test.That(t, spiIocMessage(1), test.ShouldEqual, uintptr(0x40206b00))
	test.That(t, spiIocMessage(2), test.ShouldEqual, uintptr(0x40406b00))
	test.That(t, spiIocWrMode, test.ShouldEqual, uintptr(0x40016b01))
	test.That(t, spiIocWrBitsPerWord, test.ShouldEqual, uintptr(0x40016b03))
	test.That(t, spiIocWrMaxSpeedHz, test.ShouldEqual, uintptr(0x40046b04))
}

func TestOpenDevFS(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("missing device", func(t *testing.T) {
		_, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "spidev9.9")}, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "spidev9.9")
	})

	t.Run("not an SPI device", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plain")
		test.That(t, os.WriteFile(path, nil, 0o600), test.ShouldBeNil)
		_, err := Open(context.Background(), Config{Path: path}, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "setting mode")
	})
}

func TestDevFSTransferArguments(t *testing.T) {
	c := &devfsConn{path: "unopened", logger: logging.NewTestLogger(t)}
	_, err := c.Transfer(context.Background(), Transfer{})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = c.Transfer(context.Background(), Transfer{Tx: []byte{1, 2}, Rx: []byte{0}})
	test.That(t, err, test.ShouldNotBeNil)
}
