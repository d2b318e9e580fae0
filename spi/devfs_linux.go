//go:build linux

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

const devicePathFormat = "/dev/spidev%d.%d"

// Request numbers from linux/spi/spidev.h.
const (
	spiIocMagic = 'k'

	iocWrite = 1

	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

// spiIocTransfer mirrors struct spi_ioc_transfer.
type spiIocTransfer struct {
	txBuf          uint64
	rxBuf          uint64
	length         uint32
	speedHz        uint32
	delayUsecs     uint16
	bitsPerWord    uint8
	csChange       uint8
	txNBits        uint8
	rxNBits        uint8
	wordDelayUsecs uint8
	pad            uint8
}

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNrShift) | (size << iocSizeShift)
}

// spiIocMessage is SPI_IOC_MESSAGE(n).
func spiIocMessage(n uintptr) uintptr {
	return ioc(iocWrite, spiIocMagic, 0, n*unsafe.Sizeof(spiIocTransfer{}))
}

var (
	spiIocWrMode        = ioc(iocWrite, spiIocMagic, 1, 1)
	spiIocWrBitsPerWord = ioc(iocWrite, spiIocMagic, 3, 1)
	spiIocWrMaxSpeedHz  = ioc(iocWrite, spiIocMagic, 4, 4)
)

func ioctl(fd, request uintptr, arg unsafe.Pointer) (uintptr, error) {
	r1, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, uintptr(arg))
	if errno != 0 {
		return r1, errno
	}
	return r1, nil
}

type devfsConn struct {
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
	c := &devfsConn{f: f, path: path, logger: logger}

	mode := conf.Mode
	bits := uint8(BitsPerWord)
	speed := conf.speedHz()
	for _, setting := range []struct {
		name    string
		request uintptr
		arg     unsafe.Pointer
	}{
		{"mode", spiIocWrMode, unsafe.Pointer(&mode)},
		{"bits per word", spiIocWrBitsPerWord, unsafe.Pointer(&bits)},
		{"max speed", spiIocWrMaxSpeedHz, unsafe.Pointer(&speed)},
	} {
		if _, err := ioctl(f.Fd(), setting.request, setting.arg); err != nil {
			return nil, errors.Wrapf(err, "setting %s on %s", setting.name, path)
		}
	}
	guard.Success()
	logger.CDebugw(ctx, "opened SPI device", "path", path, "mode", mode, "speed_hz", speed)
	return c, nil
}

// Transfer issues a single SPI_IOC_MESSAGE(1) and returns the byte count the kernel reports.
func (c *devfsConn) Transfer(ctx context.Context, xfer Transfer) (int, error) {
	if len(xfer.Tx) == 0 {
		return 0, errors.New("empty SPI transfer")
	}
	if xfer.Rx != nil && len(xfer.Rx) != len(xfer.Tx) {
		return 0, errors.Errorf("rx buffer is %d bytes for a %d byte transfer", len(xfer.Rx), len(xfer.Tx))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := spiIocTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&xfer.Tx[0]))),
		length:      uint32(len(xfer.Tx)),
		speedHz:     xfer.SpeedHz,
		bitsPerWord: xfer.BitsPerWord,
	}
	if xfer.Rx != nil {
		k.rxBuf = uint64(uintptr(unsafe.Pointer(&xfer.Rx[0])))
	}
	n, err := ioctl(c.f.Fd(), spiIocMessage(1), unsafe.Pointer(&k))
	runtime.KeepAlive(xfer.Tx)
	runtime.KeepAlive(xfer.Rx)
	if err != nil {
		return -1, errors.Wrapf(err, "SPI_IOC_MESSAGE on %s", c.path)
	}
	return int(n), nil
}

func (c *devfsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f.Close()
}
