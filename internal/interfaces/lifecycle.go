package interfaces

import (
	"context"

	"github.com/KevinKickass/OpenMachineAIO/internal/config"
	"github.com/KevinKickass/OpenMachineAIO/internal/devices"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State            string `json:"state"`
	Ready            bool   `json:"ready"`
	Board            string `json:"board,omitempty"`
	InputCount       int    `json:"input_count"`
	OutputCount      int    `json:"output_count"`
	WebSocketClients int    `json:"websocket_clients"`
	Error            string `json:"error,omitempty"`
}

type LifecycleManager interface {
	Config() *config.Config
	DeviceManager() *devices.Manager
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
