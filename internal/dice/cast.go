// Package dice implements the dice domain of the coordination core: die
// kinds, casts of roll slots, the result engine and success counting.
package dice

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnknownKind indicates a die-kind name outside the protocol set.
var ErrUnknownKind = errors.New("unknown die kind")

// ErrValueOutOfRange indicates a slot value outside [1, sides].
var ErrValueOutOfRange = errors.New("die value out of range")

// ErrSizeMismatch indicates a value vector whose length differs from the
// cast size.
var ErrSizeMismatch = errors.New("value count does not match cast size")

// Kind identifies a die. The tag is part of the wire protocol and is
// preserved round-trip through the serializer.
type Kind int

const (
	D4 Kind = iota
	D6
	D8
	D10
	D12
	D16
	D20
	D100
)

// Kinds lists every die kind in protocol order.
func Kinds() []Kind {
	return []Kind{D4, D6, D8, D10, D12, D16, D20, D100}
}

// Sides returns the number of faces; each slot value is in [1, Sides].
func (k Kind) Sides() uint32 {
	switch k {
	case D4:
		return 4
	case D6:
		return 6
	case D8:
		return 8
	case D10:
		return 10
	case D12:
		return 12
	case D16:
		return 16
	case D20:
		return 20
	case D100:
		return 100
	}
	return 0
}

func (k Kind) String() string {
	switch k {
	case D4:
		return "D4"
	case D6:
		return "D6"
	case D8:
		return "D8"
	case D10:
		return "D10"
	case D12:
		return "D12"
	case D16:
		return "D16"
	case D20:
		return "D20"
	case D100:
		return "D100"
	}
	return "Unknown"
}

// ParseKind maps a protocol die-kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, ErrUnknownKind
}

// Cast is a sequence of roll slots of a single die kind. A zero slot
// value encodes "not yet rolled"; the engine fills slots with values in
// [1, Sides] and the cast is immutable thereafter.
type Cast struct {
	kind   Kind
	values []uint32
}

// NewCast creates a zeroed cast of the given kind and size.
func NewCast(kind Kind, size int) Cast {
	return Cast{kind: kind, values: make([]uint32, size)}
}

// Kind returns the cast's die kind.
func (c Cast) Kind() Kind { return c.kind }

// Size returns the number of slots.
func (c Cast) Size() int { return len(c.values) }

// Values returns the slot values. The returned slice is the cast's
// backing storage; callers must not mutate it.
func (c Cast) Values() []uint32 { return c.values }

// Fill sets every slot from values. Each value must be zero or within
// [1, Sides].
func (c Cast) Fill(values []uint32) error {
	if len(values) != len(c.values) {
		return ErrSizeMismatch
	}
	for _, v := range values {
		if v > c.kind.Sides() {
			return ErrValueOutOfRange
		}
	}
	copy(c.values, values)
	return nil
}

// Text renders the slot values as the display form "v;v;v;".
func (c Cast) Text() string {
	var b strings.Builder
	for _, v := range c.values {
		b.WriteString(strconv.FormatUint(uint64(v), 10))
		b.WriteByte(';')
	}
	return b.String()
}

// SuccessCount returns how many slots meet the threshold.
func SuccessCount(c Cast, threshold uint32) int {
	count := 0
	for _, v := range c.values {
		if v >= threshold {
			count++
		}
	}
	return count
}
