//go:build freebsd

package spi

import (
	"context"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"go.viam.com/loragw/logging"
	"go.viam.com/loragw/utils"
)

const devicePathFormat = "/dev/spigen%d.%d"

// Request numbers from sys/spigenio.h.
const (
	spigenIocBase = 'S'

	iocIn        = 0x80000000
	iocParamMask = 0x1fff
)

// spigenTransfer mirrors struct spigen_transfer.
type spigenTransfer struct {
	command unix.Iovec
	data    unix.Iovec
}

func iow(group, num, size uintptr) uintptr {
	return iocIn | ((size & iocParamMask) << 16) | (group << 8) | num
}

var (
	spigenIocTransfer      = iow(spigenIocBase, 100, unsafe.Sizeof(spigenTransfer{}))
	spigenIocSetClockSpeed = iow(spigenIocBase, 103, 4)
	spigenIocSetSPIMode    = iow(spigenIocBase, 105, 4)
)

func ioctl(fd, request uintptr, arg unsafe.Pointer) (int, error) {
	r1, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, uintptr(arg))
	if errno != 0 {
		return -1, errno
	}
	return int(r1), nil
}

type spigenConn struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	logger logging.Logger
}

func openDevFS(ctx context.Context, conf Config, logger logging.Logger) (Conn, error) {
	path := conf.DevicePath()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	guard := utils.NewGuard(func() {
		if err := f.Close(); err != nil {
			logger.Debugw("closing SPI device after failed setup", "path", path, "error", err)
		}
	})
	defer guard.OnFail()

	mode := uint32(conf.Mode)
	if _, err := ioctl(f.Fd(), spigenIocSetSPIMode, unsafe.Pointer(&mode)); err != nil {
		return nil, errors.Wrapf(err, "setting mode on %s", path)
	}
	speed := conf.speedHz()
	if _, err := ioctl(f.Fd(), spigenIocSetClockSpeed, unsafe.Pointer(&speed)); err != nil {
		return nil, errors.Wrapf(err, "setting clock speed on %s", path)
	}
	guard.Success()
	logger.CDebugw(ctx, "opened SPI device", "path", path, "mode", mode, "speed_hz", speed)
	return &spigenConn{f: f, path: path, logger: logger}, nil
}

// Transfer issues a single SPIGENIOC_TRANSFER. spigen only reports a status, so a non-negative
// status is reported as the whole frame transferred.
//
// spigen clocks the received bytes back into the command buffer. A full-duplex transfer therefore
// runs in place in Rx; a write-only transfer runs on a scratch copy so Tx is left untouched.
// Per-transfer speed and word size are not supported by spigen and are ignored.
func (c *spigenConn) Transfer(ctx context.Context, xfer Transfer) (int, error) {
	if len(xfer.Tx) == 0 {
		return 0, errors.New("empty SPI transfer")
	}
	buf := xfer.Rx
	if buf == nil {
		buf = make([]byte, len(xfer.Tx))
	} else if len(buf) != len(xfer.Tx) {
		return 0, errors.Errorf("rx buffer is %d bytes for a %d byte transfer", len(buf), len(xfer.Tx))
	}
	copy(buf, xfer.Tx)

	c.mu.Lock()
	defer c.mu.Unlock()

	// spigen overwrites st_command with the received bytes, so reads use it in place; st_data stays empty.
	var st spigenTransfer
	st.command.Base = &buf[0]
	st.command.SetLen(len(buf))
	status, err := ioctl(c.f.Fd(), spigenIocTransfer, unsafe.Pointer(&st))
	runtime.KeepAlive(buf)
	if err != nil {
		return -1, errors.Wrapf(err, "SPIGENIOC_TRANSFER on %s", c.path)
	}
	if status < 0 {
		return status, errors.Errorf("SPIGENIOC_TRANSFER on %s returned %d", c.path, status)
	}
	return len(xfer.Tx), nil
}

func (c *spigenConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f.Close()
}
