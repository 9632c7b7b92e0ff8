package aio

import (
	"fmt"
	"math"
)

const (
	MinPercent = 0.0
	MaxPercent = 100.0
)

// WriteTarget selects the output channel(s) a write addresses.
// It is one of Single, Mask or All.
type WriteTarget interface {
	isWriteTarget()
	String() string
}

// Single addresses one output channel by name.
type Single struct{ Name string }

// Mask addresses one output channel by its frame slot.
type Mask struct{ N int }

// All addresses both configured output channels in configured order.
type All struct{}

func (Single) isWriteTarget() {}
func (Mask) isWriteTarget()   {}
func (All) isWriteTarget()    {}

func (t Single) String() string { return t.Name }
func (t Mask) String() string   { return fmt.Sprintf("mask %d", t.N) }
func (All) String() string      { return "all" }

// WriteValue is one of Scalar or Pair.
type WriteValue interface {
	isWriteValue()
	values() []float64
}

type Scalar float64

type Pair [2]float64

func (Scalar) isWriteValue() {}
func (Pair) isWriteValue()   {}

func (v Scalar) values() []float64 { return []float64{float64(v)} }
func (v Pair) values() []float64   { return []float64{v[0], v[1]} }

// checkRange returns a RangeError naming every value outside [0,100].
func checkRange(v WriteValue) error {
	var bad []float64
	for _, f := range v.values() {
		if math.IsNaN(f) || f < MinPercent || f > MaxPercent {
			bad = append(bad, f)
		}
	}
	if len(bad) > 0 {
		return &RangeError{Values: bad}
	}
	return nil
}

// ParseTarget maps a loosely typed target (as decoded from JSON) onto a
// WriteTarget: nil or "" is All, a string is Single, a whole number is Mask.
func ParseTarget(raw any) (WriteTarget, error) {
	switch t := raw.(type) {
	case nil:
		return All{}, nil
	case string:
		if t == "" {
			return All{}, nil
		}
		return Single{Name: t}, nil
	case int:
		return Mask{N: t}, nil
	case float64:
		if t != math.Trunc(t) {
			return nil, &ShapeError{Reason: fmt.Sprintf("mask must be an integer, got %v", t)}
		}
		return Mask{N: int(t)}, nil
	default:
		return nil, &ShapeError{Reason: fmt.Sprintf("unsupported target type %T", raw)}
	}
}

// ParseValue maps a loosely typed value onto a WriteValue: a number is a
// Scalar, an array of exactly two numbers is a Pair.
func ParseValue(raw any) (WriteValue, error) {
	switch v := raw.(type) {
	case float64:
		return Scalar(v), nil
	case int:
		return Scalar(v), nil
	case []float64:
		if len(v) != 2 {
			return nil, &ShapeError{Reason: fmt.Sprintf("array must contain 2 items, got %d", len(v))}
		}
		return Pair{v[0], v[1]}, nil
	case []any:
		if len(v) != 2 {
			return nil, &ShapeError{Reason: fmt.Sprintf("array must contain 2 items, got %d", len(v))}
		}
		var p Pair
		for i, item := range v {
			f, ok := toFloat(item)
			if !ok {
				return nil, &ShapeError{Reason: fmt.Sprintf("item %d must be a number, got %T", i, item)}
			}
			p[i] = f
		}
		return p, nil
	default:
		return nil, &ShapeError{Reason: fmt.Sprintf("value must be a number or an array of 2 numbers, got %T", raw)}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
