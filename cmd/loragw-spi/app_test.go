package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/loragw/logging"
	"go.viam.com/loragw/spi"
	"go.viam.com/loragw/sx1261"
	"go.viam.com/loragw/testutils/inject"
)

// newTestRunner returns a runner whose device answers every transfer through reply.
func newTestRunner(reply func(tx []byte) ([]byte, int)) (*runner, *bytes.Buffer, *[]spi.Transfer, *spi.Config) {
	out := &bytes.Buffer{}
	conn, recorded := inject.NewRecordingSPIConn(reply)
	opened := &spi.Config{}
	r := &runner{
		out: out,
		open: func(ctx context.Context, conf spi.Config, logger logging.Logger) (spi.Conn, error) {
			*opened = conf
			return conn, nil
		},
	}
	return r, out, recorded, opened
}

func run(t *testing.T, r *runner, args ...string) error {
	t.Helper()
	return newApp(r).RunContext(context.Background(), append([]string{"loragw-spi"}, args...))
}

func TestSX125xCommands(t *testing.T) {
	r, out, recorded, opened := newTestRunner(func(tx []byte) ([]byte, int) {
		return []byte{0, 0, tx[1] + 1}, len(tx)
	})

	err := run(t, r, "--device", "/dev/spidev0.0", "sx125x", "read", "--mux", "1", "--addr", "0x10")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldEqual, "0x11\n")
	test.That(t, opened.Path, test.ShouldEqual, "/dev/spidev0.0")
	test.That(t, (*recorded)[0].Tx, test.ShouldResemble, []byte{0x01, 0x10, 0x00})

	err = run(t, r, "sx125x", "write", "--mux", "1", "--addr", "0x10", "--data", "0xAB")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, (*recorded)[1].Tx, test.ShouldResemble, []byte{0x01, 0x90, 0xAB})

	out.Reset()
	err = run(t, r, "sx125x", "dump", "--from", "0x00", "--to", "0x03")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(*recorded), test.ShouldEqual, 6)
	test.That(t, out.String(), test.ShouldContainSubstring, "0x03")
	test.That(t, out.String(), test.ShouldContainSubstring, "00000100")

	err = run(t, r, "sx125x", "dump", "--from", "0x10", "--to", "0x80")
	test.That(t, err, test.ShouldNotBeNil)

	err = run(t, r, "sx125x", "read", "--addr", "0x100")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSX1261Commands(t *testing.T) {
	r, out, recorded, _ := newTestRunner(func(tx []byte) ([]byte, int) {
		rx := make([]byte, len(tx))
		for i := 1; i < len(rx); i++ {
			rx[i] = byte(0xA0 + i)
		}
		return rx, len(tx)
	})

	err := run(t, r, "sx1261", "read", "--op", "readregister", "--size", "4", "--args", "07 40")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldEqual, "0xA1 0xA2 0xA3 0xA4\n")
	test.That(t, (*recorded)[0].Tx, test.ShouldResemble,
		[]byte{byte(sx1261.OpReadRegister), 0x07, 0x40, 0x00, 0x00})

	err = run(t, r, "sx1261", "write", "--op", "0x80", "--data", "0x00")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, (*recorded)[1].Tx, test.ShouldResemble, []byte{0x80, 0x00})

	err = run(t, r, "sx1261", "write", "--op", "GetStatus")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, (*recorded)[2].Tx, test.ShouldResemble, []byte{0xC0})

	err = run(t, r, "sx1261", "read", "--op", "GetStatus", "--size", "1", "--args", "0102")
	test.That(t, err, test.ShouldNotBeNil)

	err = run(t, r, "sx1261", "write", "--op", "NotACommand")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(*recorded), test.ShouldEqual, 3)
}

func TestOpCodesListIsSorted(t *testing.T) {
	r, out, _, _ := newTestRunner(nil)
	test.That(t, run(t, r, "sx1261", "opcodes"), test.ShouldBeNil)

	listing := out.String()
	test.That(t, strings.Index(listing, "ResetStats"), test.ShouldBeLessThan, strings.Index(listing, "SetStandby"))
	test.That(t, strings.Index(listing, "SetStandby"), test.ShouldBeLessThan, strings.Index(listing, "SetTxInfinitePreamble"))
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spi.json")
	test.That(t, os.WriteFile(path, []byte(`{"driver": "periph", "spi_bus": 1, "chip_select": 0, "speed_hz": 1000000}`), 0o600),
		test.ShouldBeNil)

	r, _, _, opened := newTestRunner(nil)
	err := run(t, r, "--config", path, "--chip-select", "1", "sx125x", "read", "--addr", "1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *opened, test.ShouldResemble, spi.Config{
		Driver:     spi.DriverPeriph,
		Bus:        1,
		ChipSelect: 1,
		SpeedHz:    1000000,
	})

	err = run(t, r, "--config", filepath.Join(t.TempDir(), "missing.json"), "sx1261", "opcodes")
	test.That(t, err, test.ShouldNotBeNil)

	err = run(t, r, "--driver", "bitbang", "sx1261", "opcodes")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestOutOfRangeFlags(t *testing.T) {
	r, _, recorded, opened := newTestRunner(nil)

	err := run(t, r, "--mode", "259", "sx125x", "read", "--addr", "0x01")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "--mode 259")

	err = run(t, r, "--speed", "4294967297", "sx125x", "read", "--addr", "0x01")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "--speed 4294967297")

	test.That(t, len(*recorded), test.ShouldEqual, 0)
	test.That(t, *opened, test.ShouldResemble, spi.Config{})

	err = run(t, r, "--mode", "3", "--speed", "4294967295", "sx125x", "read", "--addr", "0x01")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opened.Mode, test.ShouldEqual, uint8(3))
	test.That(t, opened.SpeedHz, test.ShouldEqual, uint32(4294967295))
}

func TestParseHexBytes(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected []byte
	}{
		{"", []byte{}},
		{"0x0102", []byte{1, 2}},
		{"de ad,be:ef", []byte{0xDE, 0xAD, 0xBE, 0xEF}},
	} {
		b, err := parseHexBytes(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, b, test.ShouldResemble, tc.expected)
	}
	_, err := parseHexBytes("abc")
	test.That(t, err, test.ShouldNotBeNil)
}
