package aio

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Fixture is a static input sample set used instead of the board.
type Fixture struct {
	Status  byte               `yaml:"status" json:"status"`
	Samples [InputCount]uint16 `yaml:"samples" json:"samples"`
}

// LoadFixture reads a fixture from a YAML or JSON file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var raw struct {
		Status  byte     `yaml:"status"`
		Samples []uint16 `yaml:"samples"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	if len(raw.Samples) != InputCount {
		return nil, fmt.Errorf("fixture %s: expected %d samples, got %d", path, InputCount, len(raw.Samples))
	}

	f := &Fixture{Status: raw.Status}
	copy(f.Samples[:], raw.Samples)
	return f, nil
}

// FixtureBus implements Bus without hardware. Read requests are answered
// from the fixture samples, write frames are recorded and dropped.
type FixtureBus struct {
	mu      sync.Mutex
	fixture Fixture
	frames  [][]byte
}

func NewFixtureBus(f Fixture) *FixtureBus {
	return &FixtureBus{fixture: f}
}

func (b *FixtureBus) Open(busIndex, deviceIndex int, mode Mode) (Conn, error) {
	return &fixtureConn{bus: b}, nil
}

// SetSamples replaces the raw codes returned by subsequent reads.
func (b *FixtureBus) SetSamples(raw [InputCount]uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fixture.Samples = raw
}

// Frames returns a copy of every write frame sent so far.
func (b *FixtureBus) Frames() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([][]byte, len(b.frames))
	for i, f := range b.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

type fixtureConn struct {
	bus    *FixtureBus
	closed bool
}

func (c *fixtureConn) Transfer(msgs ...Transfer) error {
	if c.closed {
		return fmt.Errorf("handle closed")
	}

	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()

	for _, m := range msgs {
		if len(m.Send) == 0 {
			return fmt.Errorf("empty transfer")
		}
		switch m.Send[0] {
		case CmdReadInputs:
			resp := EncodeReadResponse(c.bus.fixture.Status, c.bus.fixture.Samples)
			copy(m.Receive, resp)
		case CmdWriteOutputs:
			c.bus.frames = append(c.bus.frames, append([]byte(nil), m.Send...))
		default:
			return fmt.Errorf("unknown command 0x%02X", m.Send[0])
		}
	}
	return nil
}

func (c *fixtureConn) Close() error {
	c.closed = true
	return nil
}
