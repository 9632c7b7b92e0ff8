package aio

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/KevinKickass/OpenMachineAIO/internal/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Device drives one pigeon analog I/O board. Every exchange opens the bus
// handle, performs exactly one transfer and closes the handle again.
//
// A Device does not serialize calls; the owner must make sure only one
// Read or Write is in flight at a time.
type Device struct {
	ID     uuid.UUID
	Name   string
	Config *types.BoardConfig

	bus    Bus
	params BusParams
	state  *State
	logger *zap.Logger
}

func NewDevice(cfg *types.BoardConfig, bus Bus, params BusParams, logger *zap.Logger) *Device {
	return &Device{
		ID:     uuid.New(),
		Name:   cfg.Name,
		Config: cfg,
		bus:    bus,
		params: params,
		state:  NewState(),
		logger: logger,
	}
}

func (d *Device) State() *State { return d.state }

func (d *Device) Snapshot() Snapshot { return d.state.Snapshot() }

// Read samples all four inputs. Values are keyed by configured input name
// in order, or IN0..IN3 when no inputs are configured.
func (d *Device) Read(ctx context.Context) (map[string]float64, error) {
	tx := ReadRequest()
	rx := make([]byte, ReadFrameLength)

	if err := d.exchange(ctx, tx, rx); err != nil {
		return nil, err
	}

	resp, err := DecodeReadResponse(rx)
	if err != nil {
		return nil, &BusPhaseError{Phase: PhaseTransfer, Err: err}
	}
	volts := resp.Volts()

	result := make(map[string]float64, InputCount)
	if len(d.Config.Inputs) > 0 {
		for i, in := range d.Config.Inputs {
			if i >= InputCount {
				break
			}
			result[in.Name] = volts[i]
		}
		d.state.setInputs(result)
	} else {
		for i, v := range volts {
			result[fmt.Sprintf("IN%d", i)] = v
		}
	}

	d.logger.Debug("AIO read",
		zap.String("device", d.Name),
		zap.String("frame", hex.EncodeToString(rx)),
		zap.Any("values", result))

	return result, nil
}

// Write sets one or both outputs. Validation happens before the bus is
// touched and state only changes after the transfer succeeded.
func (d *Device) Write(ctx context.Context, target WriteTarget, value WriteValue) error {
	if target == nil {
		target = All{}
	}
	if value == nil {
		return &ShapeError{Reason: "missing value"}
	}

	w, err := d.plan(target, value)
	if err != nil {
		return err
	}
	if w == nil {
		return nil
	}

	frame := WriteFrame(w.slots[0], w.slots[1])
	if err := d.exchange(ctx, frame, nil); err != nil {
		return err
	}

	d.state.setOutputs(w.updates)

	d.logger.Debug("AIO write",
		zap.String("device", d.Name),
		zap.String("target", target.String()),
		zap.String("frame", hex.EncodeToString(frame)))

	return nil
}

// Bringup initializes the outputs to their configured values and then
// samples the inputs once. The order is fixed.
func (d *Device) Bringup(ctx context.Context) error {
	if n := len(d.Config.Outputs); n > 0 {
		if n != 2 {
			return fmt.Errorf("initialize outputs: %w", &TargetResolutionError{})
		}
		init := Pair{d.Config.Outputs[0].Init, d.Config.Outputs[1].Init}
		if err := d.Write(ctx, All{}, init); err != nil {
			return fmt.Errorf("initialize outputs: %w", err)
		}
	}

	if len(d.Config.Inputs) > 0 {
		if _, err := d.Read(ctx); err != nil {
			return fmt.Errorf("sample inputs: %w", err)
		}
	}

	d.logger.Info("AIO bring-up complete",
		zap.String("device", d.Name),
		zap.Int("outputs", len(d.Config.Outputs)),
		zap.Int("inputs", len(d.Config.Inputs)))

	return nil
}

// pendingWrite is a validated write: slot values for the frame and the
// state updates to apply once it went out.
type pendingWrite struct {
	slots   [2]*float64
	updates map[string]float64
}

// plan resolves the target and validates the value. A nil result with a
// nil error means there is nothing to send.
func (d *Device) plan(target WriteTarget, value WriteValue) (*pendingWrite, error) {
	switch t := target.(type) {
	case Single:
		out, ok := d.Config.OutputByName(t.Name)
		if !ok {
			return nil, &TargetResolutionError{Name: t.Name}
		}
		return d.planSingle(out, value)

	case Mask:
		out, ok := d.Config.OutputByMask(t.N)
		if !ok {
			return nil, &TargetResolutionError{Mask: t.N, ByMask: true}
		}
		return d.planSingle(out, value)

	case All:
		return d.planAll(value)

	default:
		return nil, fmt.Errorf("unsupported write target %T", target)
	}
}

func (d *Device) planSingle(out types.OutputChannel, value WriteValue) (*pendingWrite, error) {
	s, ok := value.(Scalar)
	if !ok {
		return nil, &ShapeError{Reason: "value must be a number"}
	}
	if err := checkRange(s); err != nil {
		return nil, err
	}

	v := float64(s)
	if cur, ok := d.state.Output(out.Name); ok && cur == v {
		d.logger.Debug("same output value",
			zap.String("device", d.Name),
			zap.String("output", out.Name),
			zap.Float64("value", v))
		return nil, nil
	}

	w := &pendingWrite{updates: map[string]float64{out.Name: v}}
	if err := w.place(out, v); err != nil {
		return nil, err
	}
	return w, nil
}

func (d *Device) planAll(value WriteValue) (*pendingWrite, error) {
	p, ok := value.(Pair)
	if !ok {
		return nil, &ShapeError{Reason: "value must be an array of 2 numbers"}
	}
	if len(d.Config.Outputs) != 2 {
		return nil, &TargetResolutionError{}
	}
	if err := checkRange(p); err != nil {
		return nil, err
	}

	w := &pendingWrite{updates: make(map[string]float64, 2)}
	for i, out := range d.Config.Outputs {
		if err := w.place(out, p[i]); err != nil {
			return nil, err
		}
		w.updates[out.Name] = p[i]
	}
	return w, nil
}

func (w *pendingWrite) place(out types.OutputChannel, v float64) error {
	switch out.Mask {
	case MaskSlot1, MaskSlot2:
		w.slots[out.Mask-1] = &v
		return nil
	default:
		return &TargetResolutionError{Mask: out.Mask, ByMask: true}
	}
}

// exchange runs one open/transfer/close cycle. The handle is closed on
// every path; a close failure is reported even if the transfer succeeded.
func (d *Device) exchange(ctx context.Context, tx, rx []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := d.bus.Open(d.params.BusIndex, d.params.DeviceIndex, d.params.Mode)
	if err != nil {
		return phaseError(PhaseOpen, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			err = multierr.Combine(err, phaseError(PhaseClose, cerr))
		}
	}()

	msg := Transfer{
		Send:    tx,
		Receive: rx,
		Length:  len(tx),
		SpeedHz: d.params.SpeedHz,
	}
	if err := conn.Transfer(msg); err != nil {
		return phaseError(PhaseTransfer, err)
	}

	return nil
}
