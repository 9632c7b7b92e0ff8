package devices

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/KevinKickass/OpenMachineAIO/internal/aio"
	"github.com/KevinKickass/OpenMachineAIO/internal/types"
)

// Board config defaults
const (
	defaultBoardName  = "AIO"
	defaultOutputName = "out1"
	defaultOutputInit = 25.0
	defaultOutputMask = 1
	defaultInputName  = "in1"
)

// BoardLoader reads and validates analog board config files.
type BoardLoader struct {
	validator *Validator
}

func NewBoardLoader() (*BoardLoader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &BoardLoader{validator: validator}, nil
}

func (l *BoardLoader) Load(path string) (*types.BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board config: %w", err)
	}

	board, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return board, nil
}

// rawBoard keeps optional fields as pointers so defaults can be told apart
// from explicit zero values.
type rawBoard struct {
	Name    *string `json:"name"`
	Type    *string `json:"type"`
	Outputs []struct {
		Name *string  `json:"name"`
		Init *float64 `json:"init"`
		Mask *int     `json:"mask"`
	} `json:"outputs"`
	Inputs []struct {
		Name *string `json:"name"`
	} `json:"inputs"`
}

// Parse validates raw JSON, applies defaults and checks the channel
// invariants.
func (l *BoardLoader) Parse(data []byte) (*types.BoardConfig, error) {
	if err := l.validator.ValidateBoard(data); err != nil {
		return nil, err
	}

	var raw rawBoard
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board config: %w", err)
	}

	board := &types.BoardConfig{
		Name: stringOr(raw.Name, defaultBoardName),
		Type: stringOr(raw.Type, types.BoardTypePigeon),
	}
	for _, o := range raw.Outputs {
		out := types.OutputChannel{
			Name: stringOr(o.Name, defaultOutputName),
			Init: defaultOutputInit,
			Mask: defaultOutputMask,
		}
		if o.Init != nil {
			out.Init = *o.Init
		}
		if o.Mask != nil {
			out.Mask = *o.Mask
		}
		board.Outputs = append(board.Outputs, out)
	}
	for _, i := range raw.Inputs {
		board.Inputs = append(board.Inputs, types.InputChannel{Name: stringOr(i.Name, defaultInputName)})
	}

	if err := CheckBoard(board); err != nil {
		return nil, err
	}
	return board, nil
}

// CheckBoard enforces what the schema cannot express: unique names per
// channel set and exactly one output per mask slot.
func CheckBoard(board *types.BoardConfig) error {
	var problems []string

	if board.Type != types.BoardTypePigeon {
		problems = append(problems, fmt.Sprintf("unsupported board type %q", board.Type))
	}

	seen := make(map[string]bool)
	for _, out := range board.Outputs {
		if seen[out.Name] {
			problems = append(problems, fmt.Sprintf("duplicate output name %q", out.Name))
		}
		seen[out.Name] = true
		if out.Init < aio.MinPercent || out.Init > aio.MaxPercent {
			problems = append(problems, fmt.Sprintf("output %q: init %v outside [0,100]", out.Name, out.Init))
		}
	}

	seen = make(map[string]bool)
	for _, in := range board.Inputs {
		if seen[in.Name] {
			problems = append(problems, fmt.Sprintf("duplicate input name %q", in.Name))
		}
		seen[in.Name] = true
	}
	if len(board.Inputs) > aio.InputCount {
		problems = append(problems, fmt.Sprintf("at most %d inputs supported, got %d", aio.InputCount, len(board.Inputs)))
	}

	if len(board.Outputs) > 0 {
		masks := make(map[int]int)
		for _, out := range board.Outputs {
			masks[out.Mask]++
		}
		if len(board.Outputs) != 2 || masks[aio.MaskSlot1] != 1 || masks[aio.MaskSlot2] != 1 {
			problems = append(problems, "outputs must be exactly two channels with masks 1 and 2")
		}
	}

	if len(problems) > 0 {
		return &ConfigValidationError{Problems: problems}
	}
	return nil
}

func stringOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
