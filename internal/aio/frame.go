package aio

import (
	"encoding/binary"
	"fmt"
)

// Pigeon command codes
const (
	CmdReadInputs   = 0x41
	CmdWriteOutputs = 0x4F
)

const (
	ReadFrameLength  = 9 // cmd + 4x uint16
	WriteFrameLength = 5 // cmd + 2x int16
	InputCount       = 4
	fillerByte       = 0xFF
)

// Output slot masks
const (
	MaskSlot1 = 1
	MaskSlot2 = 2
)

// slotUnchanged tells the board to leave a DAC channel as it is.
var slotUnchanged = [2]byte{0x00, 0x80}

// ReadRequest builds the 9 byte input request. The filler bytes clock
// the response out of the board.
func ReadRequest() []byte {
	frame := make([]byte, ReadFrameLength)
	frame[0] = CmdReadInputs
	for i := 1; i < len(frame); i++ {
		frame[i] = fillerByte
	}
	return frame
}

// ReadResponse is a decoded input response.
type ReadResponse struct {
	Status byte
	Raw    [InputCount]uint16
}

// DecodeReadResponse parses byte 0 (status/echo) and the four
// little-endian input codes that follow.
func DecodeReadResponse(data []byte) (*ReadResponse, error) {
	if len(data) < ReadFrameLength {
		return nil, fmt.Errorf("response too short: %d bytes", len(data))
	}

	resp := &ReadResponse{Status: data[0]}
	for i := 0; i < InputCount; i++ {
		offset := 1 + i*2
		resp.Raw[i] = binary.LittleEndian.Uint16(data[offset : offset+2])
	}

	return resp, nil
}

// Volts returns the scaled input values in raw order.
func (r *ReadResponse) Volts() [InputCount]float64 {
	var out [InputCount]float64
	for i, raw := range r.Raw {
		out[i] = Decode(raw)
	}
	return out
}

// EncodeReadResponse is the inverse of DecodeReadResponse. The fixture bus
// uses it to answer read requests.
func EncodeReadResponse(status byte, raw [InputCount]uint16) []byte {
	frame := make([]byte, ReadFrameLength)
	frame[0] = status
	for i, v := range raw {
		binary.LittleEndian.PutUint16(frame[1+i*2:], v)
	}
	return frame
}

// WriteFrame assembles an output frame. A nil slot value leaves that
// channel unchanged.
func WriteFrame(slot1, slot2 *float64) []byte {
	frame := make([]byte, WriteFrameLength)
	frame[0] = CmdWriteOutputs
	putSlot(frame[1:3], slot1)
	putSlot(frame[3:5], slot2)
	return frame
}

func putSlot(dst []byte, percent *float64) {
	if percent == nil {
		copy(dst, slotUnchanged[:])
		return
	}
	binary.LittleEndian.PutUint16(dst, uint16(Encode(*percent)))
}
