package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KevinKickass/OpenMachineAIO/internal/aio"
	"github.com/KevinKickass/OpenMachineAIO/internal/api/rest"
	"github.com/KevinKickass/OpenMachineAIO/internal/api/websocket"
	"github.com/KevinKickass/OpenMachineAIO/internal/auth"
	"github.com/KevinKickass/OpenMachineAIO/internal/config"
	"github.com/KevinKickass/OpenMachineAIO/internal/devices"
	"github.com/KevinKickass/OpenMachineAIO/internal/interfaces"
	"github.com/KevinKickass/OpenMachineAIO/internal/spi"
	"go.uber.org/zap"
)

type LifecycleManager struct {
	config        *config.Config
	bus           aio.Bus
	deviceManager *devices.Manager
	authService   *auth.AuthService
	wsHub         *websocket.Hub
	logger        *zap.Logger

	restServer *rest.Server

	stateMu      sync.RWMutex
	currentState SystemState
	lastError    string

	listenersMu     sync.RWMutex
	statusListeners []chan SystemStatus

	shutdownOnce sync.Once
}

// NewBoardBus selects the bus implementation once: the fixture bus when
// analog.fixture is set, the host SPI bus otherwise.
func NewBoardBus(cfg *config.Config, logger *zap.Logger) (aio.Bus, error) {
	if cfg.Analog.Fixture {
		f, err := aio.LoadFixture(cfg.Analog.FixturePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Using fixture bus", zap.String("path", cfg.Analog.FixturePath))
		return aio.NewFixtureBus(*f), nil
	}

	bus, err := spi.NewBus(logger)
	if err != nil {
		return nil, err
	}
	return bus, nil
}

func NewLifecycleManager(cfg *config.Config, bus aio.Bus, logger *zap.Logger) *LifecycleManager {
	authService := auth.NewAuthService(cfg.Auth, logger)

	return &LifecycleManager{
		config:          cfg,
		bus:             bus,
		authService:     authService,
		wsHub:           websocket.NewHub(logger, authService),
		logger:          logger,
		currentState:    StateInitializing,
		statusListeners: make([]chan SystemStatus, 0),
	}
}

// Start loads the board, runs bring-up and starts the API. A failed
// bring-up leaves the system in ERROR.
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.logger.Info("Starting OpenMachineAIO")

	lm.setState(StateInitializing)
	lm.broadcastStatus()

	go lm.wsHub.Run()

	if err := lm.loadBoard(); err != nil {
		lm.setError(fmt.Errorf("failed to load board: %w", err))
		return err
	}

	if err := lm.deviceManager.Bringup(ctx); err != nil {
		lm.setError(err)
		return err
	}

	if err := lm.deviceManager.StartPoller(lm.config.Analog.PollInterval); err != nil {
		lm.setError(err)
		return err
	}

	if err := lm.startRESTServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start REST API: %w", err))
		return err
	}

	lm.setState(StateRunning)
	lm.broadcastStatus()

	lm.logger.Info("System started successfully",
		zap.String("board", lm.deviceManager.Device().Name),
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.Bool("fixture", lm.config.Analog.Fixture))

	return nil
}

func (lm *LifecycleManager) loadBoard() error {
	loader, err := devices.NewBoardLoader()
	if err != nil {
		return err
	}

	board, err := loader.Load(lm.config.Analog.ConfigPath)
	if err != nil {
		return err
	}

	device := aio.NewDevice(board, lm.bus, busParams(lm.config.SPI), lm.logger)
	lm.deviceManager = devices.NewManager(device, lm.logger)
	lm.deviceManager.Subscribe(lm.wsHub.PublishChange)

	lm.logger.Info("Board loaded",
		zap.String("name", board.Name),
		zap.Int("inputs", len(board.Inputs)),
		zap.Int("outputs", len(board.Outputs)))

	return nil
}

// busParams takes the bus and chip select from the config. Mode and clock
// always come from the board defaults.
func busParams(cfg config.SPIConfig) aio.BusParams {
	params := aio.DefaultBusParams()
	params.BusIndex = cfg.Bus
	params.DeviceIndex = cfg.Device
	return params
}

func (lm *LifecycleManager) startRESTServer() error {
	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub, lm.authService)
	return lm.restServer.Start()
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.setState(StateStopping)
		lm.broadcastStatus()

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)
		lm.broadcastStatus()

		lm.wsHub.Close()
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if lm.deviceManager != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lm.deviceManager.StopAll(ctx); err != nil {
				errChan <- fmt.Errorf("device manager stop failed: %w", err)
			}
		}()
	}

	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		select {
		case err := <-errChan:
			return err
		default:
		}
		lm.logger.Info("Graceful shutdown completed")
		return nil
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	if err := ValidateTransition(lm.currentState, state); err != nil && lm.currentState != state {
		lm.logger.Warn("Unexpected state transition", zap.Error(err))
	}
	lm.currentState = state
}

func (lm *LifecycleManager) setError(err error) {
	lm.logger.Error("System entered error state", zap.Error(err))

	lm.stateMu.Lock()
	lm.currentState = StateError
	lm.lastError = err.Error()
	lm.stateMu.Unlock()

	lm.broadcastStatus()
}

// State returns the current lifecycle state.
func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	status := interfaces.SystemStatus{
		State:            lm.currentState.String(),
		Ready:            lm.currentState == StateRunning,
		WebSocketClients: lm.wsHub.GetClientCount(),
		Error:            lm.lastError,
	}
	if lm.deviceManager != nil {
		board := lm.deviceManager.Device().Config
		status.Board = board.Name
		status.InputCount = len(board.Inputs)
		status.OutputCount = len(board.Outputs)
	}
	return status
}

func (lm *LifecycleManager) getStatusInternal() SystemStatus {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	return SystemStatus{
		State:     lm.currentState,
		Timestamp: time.Now().Unix(),
		Error:     lm.lastError,
	}
}

func (lm *LifecycleManager) broadcastStatus() {
	status := lm.getStatusInternal()

	lm.wsHub.Broadcast(websocket.NewSystemStatusMessage(status.State.String(), status.Error))

	lm.listenersMu.RLock()
	defer lm.listenersMu.RUnlock()

	for _, listener := range lm.statusListeners {
		select {
		case listener <- status:
		default:
			// Channel full, skip
		}
	}
}

// SubscribeStatus subscribes to status updates
func (lm *LifecycleManager) SubscribeStatus() chan SystemStatus {
	ch := make(chan SystemStatus, 10)

	lm.listenersMu.Lock()
	lm.statusListeners = append(lm.statusListeners, ch)
	lm.listenersMu.Unlock()

	return ch
}

// UnsubscribeStatus unsubscribes from status updates
func (lm *LifecycleManager) UnsubscribeStatus(ch chan SystemStatus) {
	lm.listenersMu.Lock()
	defer lm.listenersMu.Unlock()

	for i, listener := range lm.statusListeners {
		if listener == ch {
			lm.statusListeners = append(lm.statusListeners[:i], lm.statusListeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// DeviceManager returns the device manager. It is nil until the board is
// loaded.
func (lm *LifecycleManager) DeviceManager() *devices.Manager {
	return lm.deviceManager
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}
