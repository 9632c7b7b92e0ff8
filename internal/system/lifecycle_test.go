package system

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KevinKickass/OpenMachineAIO/internal/aio"
	"github.com/KevinKickass/OpenMachineAIO/internal/config"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

const boardJSON = `{
  "name": "AIO",
  "type": "pigeon",
  "outputs": [
    {"name": "out1", "init": 25, "mask": 1},
    {"name": "out2", "init": 40, "mask": 2}
  ],
  "inputs": [{"name": "in1"}]
}`

type deadBus struct{}

func (deadBus) Open(int, int, aio.Mode) (aio.Conn, error) {
	return nil, errors.New("spidev missing")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	boardPath := filepath.Join(dir, "analog.json")
	assert.NilError(t, os.WriteFile(boardPath, []byte(boardJSON), 0o644))

	return &config.Config{
		Server: config.ServerConfig{HTTPPort: 0},
		SPI:    config.SPIConfig{Bus: 0, Device: 1},
		Analog: config.AnalogConfig{ConfigPath: boardPath},
	}
}

func TestStartFailsWhenBringupFails(t *testing.T) {
	lm := NewLifecycleManager(testConfig(t), deadBus{}, zap.NewNop())
	t.Cleanup(func() { _ = lm.Shutdown(context.Background()) })

	err := lm.Start(context.Background())
	assert.Assert(t, errors.Is(err, aio.ErrBusPhase))
	assert.Equal(t, lm.State(), StateError)

	status := lm.GetCurrentStatus()
	assert.Check(t, !status.Ready)
	assert.Check(t, is.Equal(status.State, "ERROR"))
	assert.Check(t, is.Contains(status.Error, "bring-up of AIO failed"))
}

func TestStartFailsOnMissingBoardConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analog.ConfigPath = filepath.Join(t.TempDir(), "missing.json")

	lm := NewLifecycleManager(cfg, aio.NewFixtureBus(aio.Fixture{}), zap.NewNop())
	t.Cleanup(func() { _ = lm.Shutdown(context.Background()) })

	assert.Assert(t, lm.Start(context.Background()) != nil)
	assert.Equal(t, lm.State(), StateError)
	assert.Check(t, lm.DeviceManager() == nil)
}

func TestStartRunsBringup(t *testing.T) {
	bus := aio.NewFixtureBus(aio.Fixture{Samples: [4]uint16{300, 0, 0, 0}})
	lm := NewLifecycleManager(testConfig(t), bus, zap.NewNop())

	assert.NilError(t, lm.Start(context.Background()))
	assert.Equal(t, lm.State(), StateRunning)

	frames := bus.Frames()
	assert.Assert(t, is.Len(frames, 1))
	// 25% -> 250 (0x00FA), 40% -> 400 (0x0190)
	assert.DeepEqual(t, frames[0], []byte{0x4F, 0xFA, 0x00, 0x90, 0x01})

	snap := lm.DeviceManager().Snapshot()
	assert.DeepEqual(t, snap.Outputs, map[string]float64{"out1": 25, "out2": 40})
	assert.DeepEqual(t, snap.Inputs, map[string]float64{"in1": 2.952})

	status := lm.GetCurrentStatus()
	assert.Check(t, status.Ready)
	assert.Check(t, is.Equal(status.OutputCount, 2))

	assert.NilError(t, lm.Shutdown(context.Background()))
	assert.Equal(t, lm.State(), StateStopped)
}

func TestValidateTransition(t *testing.T) {
	assert.NilError(t, ValidateTransition(StateInitializing, StateRunning))
	assert.NilError(t, ValidateTransition(StateError, StateStopping))
	assert.ErrorContains(t, ValidateTransition(StateError, StateRunning), "invalid state transition")
	assert.ErrorContains(t, ValidateTransition(StateStopped, StateRunning), "invalid state transition")
}

func TestNewBoardBusFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analog.yaml")
	assert.NilError(t, os.WriteFile(path, []byte("status: 0\nsamples: [1, 2, 3, 4]\n"), 0o644))

	cfg := testConfig(t)
	cfg.Analog.Fixture = true
	cfg.Analog.FixturePath = path

	bus, err := NewBoardBus(cfg, zap.NewNop())
	assert.NilError(t, err)
	_, ok := bus.(*aio.FixtureBus)
	assert.Check(t, ok)
}

func TestBusParamsPinModeAndClock(t *testing.T) {
	params := busParams(config.SPIConfig{Bus: 2, Device: 0})
	assert.Equal(t, params.BusIndex, 2)
	assert.Equal(t, params.DeviceIndex, 0)
	assert.Equal(t, params.Mode, aio.Mode1)
	assert.Equal(t, params.SpeedHz, 20000)
}
