package devices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KevinKickass/OpenMachineAIO/internal/aio"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChangeKind string

const (
	ChangeInputs  ChangeKind = "inputs"
	ChangeOutputs ChangeKind = "outputs"
)

// ChangeEvent is published after an exchange changed channel state.
type ChangeEvent struct {
	ID     uuid.UUID          `json:"id"`
	Device string             `json:"device"`
	Kind   ChangeKind         `json:"kind"`
	Values map[string]float64 `json:"values"`
	At     time.Time          `json:"at"`
}

type Listener func(ChangeEvent)

// Manager owns the board device and lets only one exchange run at a time.
// Snapshots do not wait for running exchanges.
type Manager struct {
	device *aio.Device
	poller *aio.Poller
	logger *zap.Logger

	exchMu sync.Mutex

	mu        sync.RWMutex
	listeners []Listener
}

func NewManager(device *aio.Device, logger *zap.Logger) *Manager {
	return &Manager{
		device: device,
		logger: logger,
	}
}

func (m *Manager) Device() *aio.Device { return m.device }

func (m *Manager) Snapshot() aio.Snapshot { return m.device.Snapshot() }

// Subscribe registers a listener for change events. Listeners run on the
// exchanging goroutine and must not block.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) Read(ctx context.Context) (map[string]float64, error) {
	m.exchMu.Lock()
	values, err := m.device.Read(ctx)
	m.exchMu.Unlock()

	if err != nil {
		m.logger.Error("AIO read failed",
			zap.String("device", m.device.Name),
			zap.Error(err))
		return nil, err
	}

	// IN0..IN3 of an unconfigured board never enter the snapshot.
	if len(m.device.Config.Inputs) > 0 {
		m.publish(ChangeInputs, values)
	}
	return values, nil
}

func (m *Manager) Write(ctx context.Context, target aio.WriteTarget, value aio.WriteValue) error {
	m.exchMu.Lock()
	before := m.device.Snapshot().Outputs
	err := m.device.Write(ctx, target, value)
	after := m.device.Snapshot().Outputs
	m.exchMu.Unlock()

	if err != nil {
		m.logger.Warn("AIO write failed",
			zap.String("device", m.device.Name),
			zap.Stringer("target", targetOrAll(target)),
			zap.Error(err))
		return err
	}

	if changed := diff(before, after); len(changed) > 0 {
		m.publish(ChangeOutputs, changed)
	}
	return nil
}

// Bringup runs the device start sequence under the exchange lock.
func (m *Manager) Bringup(ctx context.Context) error {
	m.exchMu.Lock()
	err := m.device.Bringup(ctx)
	m.exchMu.Unlock()

	if err != nil {
		return fmt.Errorf("bring-up of %s failed: %w", m.device.Name, err)
	}

	snap := m.device.Snapshot()
	if len(snap.Outputs) > 0 {
		m.publish(ChangeOutputs, snap.Outputs)
	}
	if len(snap.Inputs) > 0 {
		m.publish(ChangeInputs, snap.Inputs)
	}
	return nil
}

// StartPoller starts cyclic input reads. A zero interval disables polling.
func (m *Manager) StartPoller(interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	if len(m.device.Config.Inputs) == 0 {
		m.logger.Info("No inputs configured, poller not started", zap.String("device", m.device.Name))
		return nil
	}

	m.poller = aio.NewPoller(m.device.Name, m.Read, interval, m.logger)
	if err := m.poller.Start(); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}
	return nil
}

// StopAll stops the poller. The bus has no open handle between exchanges.
func (m *Manager) StopAll(ctx context.Context) error {
	if m.poller != nil {
		m.poller.Stop()
	}
	return nil
}

func (m *Manager) publish(kind ChangeKind, values map[string]float64) {
	ev := ChangeEvent{
		ID:     uuid.New(),
		Device: m.device.Name,
		Kind:   kind,
		Values: values,
		At:     time.Now(),
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.listeners {
		l(ev)
	}
}

func diff(before, after map[string]float64) map[string]float64 {
	changed := make(map[string]float64)
	for k, v := range after {
		if old, ok := before[k]; !ok || old != v {
			changed[k] = v
		}
	}
	return changed
}

func targetOrAll(t aio.WriteTarget) aio.WriteTarget {
	if t == nil {
		return aio.All{}
	}
	return t
}
