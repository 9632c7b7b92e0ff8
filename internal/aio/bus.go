package aio

// Mode is the SPI clock polarity/phase mode (0-3).
type Mode uint8

const (
	Mode0 Mode = iota
	Mode1
	Mode2
	Mode3
)

// Pigeon bus parameters.
const (
	DefaultBusIndex    = 0
	DefaultDeviceIndex = 1
	DefaultMode        = Mode1
	DefaultSpeedHz     = 20000
)

// Transfer is one full-duplex message. Receive may be nil for write-only
// transfers.
type Transfer struct {
	Send    []byte
	Receive []byte
	Length  int
	SpeedHz int
}

// Bus opens device handles on a synchronous serial bus.
type Bus interface {
	Open(busIndex, deviceIndex int, mode Mode) (Conn, error)
}

// Conn is an open device handle. Only one transfer may be in flight on a
// handle at a time and it MUST be closed to release the device.
type Conn interface {
	Transfer(msgs ...Transfer) error
	Close() error
}

// BusParams addresses the board on the bus.
type BusParams struct {
	BusIndex    int
	DeviceIndex int
	Mode        Mode
	SpeedHz     int
}

// DefaultBusParams returns the parameters the pigeon board expects.
func DefaultBusParams() BusParams {
	return BusParams{
		BusIndex:    DefaultBusIndex,
		DeviceIndex: DefaultDeviceIndex,
		Mode:        DefaultMode,
		SpeedHz:     DefaultSpeedHz,
	}
}
