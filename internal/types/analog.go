package types

const BoardTypePigeon = "pigeon"

// BoardConfig describes one analog I/O board. It is built once from a
// validated config file and not modified afterwards.
type BoardConfig struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Outputs []OutputChannel `json:"outputs,omitempty"`
	Inputs  []InputChannel  `json:"inputs,omitempty"`
}

type OutputChannel struct {
	Name string  `json:"name"`
	Init float64 `json:"init"`
	Mask int     `json:"mask"`
}

type InputChannel struct {
	Name string `json:"name"`
}

// OutputByMask returns the output channel occupying the given frame slot.
func (c *BoardConfig) OutputByMask(mask int) (OutputChannel, bool) {
	for _, out := range c.Outputs {
		if out.Mask == mask {
			return out, true
		}
	}
	return OutputChannel{}, false
}

// OutputByName returns the output channel with the given name.
func (c *BoardConfig) OutputByName(name string) (OutputChannel, bool) {
	for _, out := range c.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return OutputChannel{}, false
}
