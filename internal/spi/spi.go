// Package spi implements the aio bus contract on Linux spidev through
// periph.io.
package spi

import (
	"fmt"
	"sync"

	"github.com/KevinKickass/OpenMachineAIO/internal/aio"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const bitsPerWord = 8

var (
	initOnce sync.Once
	initErr  error
)

// Bus opens spidev ports by bus and chip select index.
type Bus struct {
	logger *zap.Logger
	open   func(name string) (spi.PortCloser, error)
}

// NewBus loads the periph host drivers. It fails when no SPI driver is
// available on this host.
func NewBus(logger *zap.Logger) (*Bus, error) {
	initOnce.Do(func() {
		state, err := host.Init()
		if err != nil {
			initErr = fmt.Errorf("failed to init periph host: %w", err)
			return
		}
		for _, f := range state.Failed {
			logger.Debug("periph driver failed", zap.String("driver", f.D.String()), zap.Error(f.Err))
		}
	})
	if initErr != nil {
		return nil, initErr
	}

	return &Bus{logger: logger, open: spireg.Open}, nil
}

// PortName is the spireg name of a spidev port.
func PortName(busIndex, deviceIndex int) string {
	return fmt.Sprintf("SPI%d.%d", busIndex, deviceIndex)
}

func (b *Bus) Open(busIndex, deviceIndex int, mode aio.Mode) (aio.Conn, error) {
	name := PortName(busIndex, deviceIndex)
	port, err := b.open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	return &Conn{name: name, port: port, mode: toMode(mode)}, nil
}

// Conn is one open spidev handle. periph fixes the clock on Connect, so
// the connection is made lazily on the first transfer.
type Conn struct {
	name    string
	port    spi.PortCloser
	mode    spi.Mode
	conn    spi.Conn
	speedHz int
}

func (c *Conn) Transfer(msgs ...aio.Transfer) error {
	for _, m := range msgs {
		if err := c.connect(m.SpeedHz); err != nil {
			return err
		}

		w := m.Send
		if m.Length > 0 && m.Length < len(w) {
			w = w[:m.Length]
		}
		r := m.Receive
		if r == nil {
			r = make([]byte, len(w))
		}
		if len(r) != len(w) {
			return fmt.Errorf("%s: receive buffer is %d bytes, want %d", c.name, len(r), len(w))
		}

		if err := c.conn.Tx(w, r); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

func (c *Conn) connect(speedHz int) error {
	if c.conn != nil {
		if speedHz != c.speedHz {
			return fmt.Errorf("%s: speed %d Hz differs from connected %d Hz", c.name, speedHz, c.speedHz)
		}
		return nil
	}

	conn, err := c.port.Connect(physic.Frequency(speedHz)*physic.Hertz, c.mode, bitsPerWord)
	if err != nil {
		return fmt.Errorf("%s: connect: %w", c.name, err)
	}
	c.conn = conn
	c.speedHz = speedHz
	return nil
}

func (c *Conn) Close() error {
	return c.port.Close()
}

func toMode(m aio.Mode) spi.Mode {
	switch m {
	case aio.Mode0:
		return spi.Mode0
	case aio.Mode2:
		return spi.Mode2
	case aio.Mode3:
		return spi.Mode3
	default:
		return spi.Mode1
	}
}
