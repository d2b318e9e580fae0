package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"go.viam.com/loragw/logging"
	"go.viam.com/loragw/spi"
	"go.viam.com/loragw/sx1261"
	"go.viam.com/loragw/sx125x"
	"go.viam.com/loragw/utils"
)

const (
	// Global flags.
	flagConfig     = "config"
	flagDevice     = "device"
	flagDriver     = "driver"
	flagBus        = "bus"
	flagChipSelect = "chip-select"
	flagSpeed      = "speed"
	flagMode       = "mode"
	flagDebug      = "debug"

	// Command flags.
	flagMux  = "mux"
	flagAddr = "addr"
	flagData = "data"
	flagFrom = "from"
	flagTo   = "to"
	flagOp   = "op"
	flagSize = "size"
	flagArgs = "args"
)

type opener func(ctx context.Context, conf spi.Config, logger logging.Logger) (spi.Conn, error)

// runner carries what every command needs. It is filled in by the app's Before hook.
type runner struct {
	out    io.Writer
	open   opener
	logger logging.Logger
	conf   spi.Config
	debug  bool
}

func newApp(r *runner) *cli.App {
	return &cli.App{
		Name:   "loragw-spi",
		Usage:  "read and write LoRa concentrator radio registers over SPI",
		Writer: r.out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load the SPI configuration from JSON `FILE`",
			},
			&cli.StringFlag{
				Name:  flagDevice,
				Usage: "SPI device path, overriding bus and chip select",
			},
			&cli.StringFlag{
				Name:  flagDriver,
				Usage: "SPI driver, devfs or periph",
			},
			&cli.IntFlag{
				Name:  flagBus,
				Usage: "SPI bus number",
			},
			&cli.IntFlag{
				Name:  flagChipSelect,
				Usage: "SPI chip select",
			},
			&cli.Uint64Flag{
				Name:  flagSpeed,
				Usage: "SPI clock rate in Hz",
			},
			&cli.Uint64Flag{
				Name:  flagMode,
				Usage: "SPI mode",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "trace every SPI frame",
			},
		},
		Before: r.before,
		Commands: []*cli.Command{
			{
				Name:  "sx125x",
				Usage: "SX1255/SX1257 register access",
				Subcommands: []*cli.Command{
					{
						Name:  "read",
						Usage: "read one register",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: flagMux, Value: "0", Usage: "mux target selecting the radio"},
							&cli.StringFlag{Name: flagAddr, Required: true, Usage: "register address"},
						},
						Action: r.sx125xRead,
					},
					{
						Name:  "write",
						Usage: "write one register",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: flagMux, Value: "0", Usage: "mux target selecting the radio"},
							&cli.StringFlag{Name: flagAddr, Required: true, Usage: "register address"},
							&cli.StringFlag{Name: flagData, Required: true, Usage: "register value"},
						},
						Action: r.sx125xWrite,
					},
					{
						Name:  "dump",
						Usage: "read a range of registers",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: flagMux, Value: "0", Usage: "mux target selecting the radio"},
							&cli.StringFlag{Name: flagFrom, Value: "0x00", Usage: "first register"},
							&cli.StringFlag{Name: flagTo, Value: "0x7F", Usage: "last register"},
						},
						Action: r.sx125xDump,
					},
				},
			},
			{
				Name:  "sx1261",
				Usage: "SX1261/SX1250 commands",
				Subcommands: []*cli.Command{
					{
						Name:  "read",
						Usage: "run a command and print the bytes returned",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: flagOp, Required: true, Usage: "op-code, by name or number"},
							&cli.IntFlag{Name: flagSize, Value: 1, Usage: "number of bytes after the op-code"},
							&cli.StringFlag{Name: flagArgs, Usage: "hex bytes sent after the op-code, zero padded to size"},
						},
						Action: r.sx1261Read,
					},
					{
						Name:  "write",
						Usage: "run a command",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: flagOp, Required: true, Usage: "op-code, by name or number"},
							&cli.StringFlag{Name: flagData, Usage: "hex payload"},
						},
						Action: r.sx1261Write,
					},
					{
						Name:   "opcodes",
						Usage:  "list the known op-codes",
						Action: r.sx1261OpCodes,
					},
				},
			},
		},
	}
}

func (r *runner) before(c *cli.Context) error {
	r.debug = c.Bool(flagDebug)
	r.logger = logging.NewLogger("loragw-spi")
	if r.debug {
		r.logger.SetLevel(zapcore.DebugLevel)
	}

	if path := c.String(flagConfig); path != "" {
		conf, err := loadConfig(path)
		if err != nil {
			return err
		}
		r.conf = conf
	}
	if c.IsSet(flagDevice) {
		r.conf.Path = c.String(flagDevice)
	}
	if c.IsSet(flagDriver) {
		r.conf.Driver = c.String(flagDriver)
	}
	if c.IsSet(flagBus) {
		r.conf.Bus = c.Int(flagBus)
	}
	if c.IsSet(flagChipSelect) {
		r.conf.ChipSelect = c.Int(flagChipSelect)
	}
	if c.IsSet(flagSpeed) {
		speed := c.Uint64(flagSpeed)
		if speed > math.MaxUint32 {
			return errors.Errorf("--%s %d does not fit in 32 bits", flagSpeed, speed)
		}
		r.conf.SpeedHz = uint32(speed)
	}
	if c.IsSet(flagMode) {
		mode := c.Uint64(flagMode)
		if mode > math.MaxUint8 {
			return errors.Errorf("--%s %d is not an SPI mode", flagMode, mode)
		}
		r.conf.Mode = uint8(mode)
	}
	return r.conf.Validate("spi")
}

func loadConfig(path string) (spi.Config, error) {
	var conf spi.Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return conf, errors.Wrapf(err, "reading config %s", path)
	}
	if err := json.Unmarshal(raw, &conf); err != nil {
		return conf, errors.Wrapf(err, "parsing config %s", path)
	}
	return conf, nil
}

// withConn opens the configured device for the duration of fn.
func (r *runner) withConn(c *cli.Context, fn func(ctx context.Context, conn spi.Conn) error) (err error) {
	ctx := c.Context
	if r.debug {
		ctx = logging.EnableDebugMode(ctx)
	}
	conn, err := r.open(ctx, r.conf, r.logger.Sublogger("spi"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, conn.Close())
	}()
	return fn(ctx, conn)
}

func (r *runner) sx125xRead(c *cli.Context) error {
	mux, addr, err := parseMuxAddr(c)
	if err != nil {
		return err
	}
	tr := sx125x.New(r.logger.Sublogger("sx125x"))
	return r.withConn(c, func(ctx context.Context, conn spi.Conn) error {
		data, err := tr.Read(ctx, conn, mux, addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "0x%02X\n", data)
		return nil
	})
}

func (r *runner) sx125xWrite(c *cli.Context) error {
	mux, addr, err := parseMuxAddr(c)
	if err != nil {
		return err
	}
	data, err := parseByte(c.String(flagData))
	if err != nil {
		return errors.Wrap(err, flagData)
	}
	tr := sx125x.New(r.logger.Sublogger("sx125x"))
	return r.withConn(c, func(ctx context.Context, conn spi.Conn) error {
		return tr.Write(ctx, conn, mux, addr, data)
	})
}

func (r *runner) sx125xDump(c *cli.Context) error {
	mux, err := parseByte(c.String(flagMux))
	if err != nil {
		return errors.Wrap(err, flagMux)
	}
	from, err := parseByte(c.String(flagFrom))
	if err != nil {
		return errors.Wrap(err, flagFrom)
	}
	to, err := parseByte(c.String(flagTo))
	if err != nil {
		return errors.Wrap(err, flagTo)
	}
	if from > to || to > 0x7F {
		return errors.Errorf("register range 0x%02X-0x%02X is not within 0x00-0x7F", from, to)
	}

	tr := sx125x.New(r.logger.Sublogger("sx125x"))
	return r.withConn(c, func(ctx context.Context, conn spi.Conn) error {
		t := table.NewWriter()
		t.SetOutputMirror(c.App.Writer)
		t.AppendHeader(table.Row{"Register", "Value", "Bits"})
		for addr := int(from); addr <= int(to); addr++ {
			data, err := tr.Read(ctx, conn, mux, byte(addr))
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{fmt.Sprintf("0x%02X", addr), fmt.Sprintf("0x%02X", data), fmt.Sprintf("%08b", data)})
		}
		t.Render()
		return nil
	})
}

func (r *runner) sx1261Read(c *cli.Context) error {
	op, err := parseOpCode(c.String(flagOp))
	if err != nil {
		return err
	}
	size := c.Int(flagSize)
	if size < 0 || size > sx1261.MaxPayloadSize {
		return errors.Errorf("size must be between 0 and %d, got %d", sx1261.MaxPayloadSize, size)
	}
	args, err := parseHexBytes(c.String(flagArgs))
	if err != nil {
		return errors.Wrap(err, flagArgs)
	}
	if len(args) > size {
		return errors.Errorf("%d argument bytes do not fit a %d byte read", len(args), size)
	}
	data := make([]byte, size)
	copy(data, args)

	tr := sx1261.New(r.logger.Sublogger("sx1261"))
	return r.withConn(c, func(ctx context.Context, conn spi.Conn) error {
		if err := tr.Read(ctx, conn, op, data); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, formatBytes(data))
		return nil
	})
}

func (r *runner) sx1261Write(c *cli.Context) error {
	op, err := parseOpCode(c.String(flagOp))
	if err != nil {
		return err
	}
	payload, err := parseHexBytes(c.String(flagData))
	if err != nil {
		return errors.Wrap(err, flagData)
	}
	tr := sx1261.New(r.logger.Sublogger("sx1261"))
	return r.withConn(c, func(ctx context.Context, conn spi.Conn) error {
		return tr.Write(ctx, conn, op, payload)
	})
}

func (r *runner) sx1261OpCodes(c *cli.Context) error {
	ops := sx1261.OpCodes()
	utils.SortFunc(ops, func(a, b sx1261.OpCode, _ struct{}) int {
		return int(a) - int(b)
	}, struct{}{})

	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"Op-code", "Command"})
	for _, op := range ops {
		t.AppendRow(table.Row{fmt.Sprintf("0x%02X", byte(op)), op.String()})
	}
	t.Render()
	return nil
}

func parseMuxAddr(c *cli.Context) (byte, byte, error) {
	mux, err := parseByte(c.String(flagMux))
	if err != nil {
		return 0, 0, errors.Wrap(err, flagMux)
	}
	addr, err := parseByte(c.String(flagAddr))
	if err != nil {
		return 0, 0, errors.Wrap(err, flagAddr)
	}
	return mux, addr, nil
}

// parseByte accepts decimal, 0x hex, 0o octal or 0b binary.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// parseHexBytes decodes a hex string, ignoring spaces, commas and an optional 0x prefix. An empty
// string is an empty, non-nil payload.
func parseHexBytes(s string) ([]byte, error) {
	cleaned := strings.NewReplacer(" ", "", ",", "", ":", "").Replace(strings.TrimSpace(s))
	cleaned = strings.TrimPrefix(strings.TrimPrefix(cleaned, "0x"), "0X")
	b, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

// parseOpCode accepts an op-code name such as ReadRegister, or its number.
func parseOpCode(s string) (sx1261.OpCode, error) {
	if op, ok := lo.Find(sx1261.OpCodes(), func(op sx1261.OpCode) bool {
		return strings.EqualFold(op.String(), s)
	}); ok {
		return op, nil
	}
	v, err := parseByte(s)
	if err != nil {
		return 0, errors.Errorf("unknown op-code %q", s)
	}
	return sx1261.OpCode(v), nil
}

func formatBytes(b []byte) string {
	return strings.Join(lo.Map(b, func(v byte, _ int) string {
		return fmt.Sprintf("0x%02X", v)
	}), " ")
}
