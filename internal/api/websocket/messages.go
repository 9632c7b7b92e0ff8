package websocket

import (
	"time"

	"github.com/KevinKickass/OpenMachineAIO/internal/devices"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageTypeAIOInput  MessageType = "aio_input"
	MessageTypeAIOOutput MessageType = "aio_output"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"
)

// Message represents a WebSocket message
type Message struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ChannelData carries new channel values of one board.
type ChannelData struct {
	Device string             `json:"device"`
	Values map[string]float64 `json:"values"`
}

type SystemStatusData struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewChangeMessage converts a device change event into a message.
func NewChangeMessage(ev devices.ChangeEvent) Message {
	msgType := MessageTypeAIOInput
	if ev.Kind == devices.ChangeOutputs {
		msgType = MessageTypeAIOOutput
	}
	return Message{
		ID:        ev.ID.String(),
		Type:      msgType,
		Timestamp: ev.At,
		Data: ChannelData{
			Device: ev.Device,
			Values: ev.Values,
		},
	}
}

func NewSystemStatusMessage(state, errMsg string) Message {
	return NewMessage(MessageTypeSystemStatus, SystemStatusData{State: state, Error: errMsg})
}
