package aio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFixtureYAML(t *testing.T) {
	path := writeFile(t, "analog.yaml", "status: 0\nsamples: [100, 200, 300, 144]\n")

	f, err := LoadFixture(path)
	assert.NilError(t, err)
	assert.Equal(t, f.Samples, [InputCount]uint16{100, 200, 300, 144})
}

func TestLoadFixtureJSON(t *testing.T) {
	path := writeFile(t, "analog.json", `{"status": 65, "samples": [1, 2, 3, 4]}`)

	f, err := LoadFixture(path)
	assert.NilError(t, err)
	assert.Equal(t, f.Status, byte(65))
	assert.Equal(t, f.Samples, [InputCount]uint16{1, 2, 3, 4})
}

func TestLoadFixtureWrongCount(t *testing.T) {
	path := writeFile(t, "analog.yaml", "samples: [1, 2]\n")

	_, err := LoadFixture(path)
	assert.ErrorContains(t, err, "expected 4 samples")
}

func TestFixtureBusExchanges(t *testing.T) {
	bus := NewFixtureBus(Fixture{Samples: [InputCount]uint16{100, 200, 300, 144}})
	dev := NewDevice(testConfig(), bus, DefaultBusParams(), zap.NewNop())

	assert.NilError(t, dev.Bringup(context.Background()))
	assert.DeepEqual(t, dev.Snapshot().Inputs, map[string]float64{
		"in1": 0.984, "in2": 1.968, "in3": 2.952, "in4": 1.417,
	})

	assert.NilError(t, dev.Write(context.Background(), Mask{N: 2}, Scalar(30)))
	assert.DeepEqual(t, bus.Frames(), [][]byte{
		{0x4F, 0xFA, 0x00, 0xF4, 0x01},
		{0x4F, 0x00, 0x80, 0x2C, 0x01},
	})

	bus.SetSamples([InputCount]uint16{0, 0, 0, 1023})
	values, err := dev.Read(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, values["in4"], 10.065)
}
