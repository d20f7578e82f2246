package types

import (
	"fmt"
	"strings"
)

// Mode selects how a property's values are computed across a configuration
// chain.
type Mode int

const (
	// ModeInherit takes the value list of the leaf-most chain entry defining
	// the property.
	ModeInherit Mode = iota
	// ModeMerge takes the leaf-to-root union of every defining entry, first
	// occurrence kept.
	ModeMerge
	// ModeCombine concatenates every defining entry leaf-to-root, duplicates
	// retained.
	ModeCombine
	// ModeShallow reads the leaf entry only.
	ModeShallow
)

// DefaultMode is used by the mode-default accessors.
const DefaultMode = ModeInherit

// String returns the string representation of the Mode
func (m Mode) String() string {
	switch m {
	case ModeInherit:
		return "inherit"
	case ModeMerge:
		return "merge"
	case ModeCombine:
		return "combine"
	case ModeShallow:
		return "shallow"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inherit", "":
		return ModeInherit, nil
	case "merge":
		return ModeMerge, nil
	case "combine":
		return ModeCombine, nil
	case "shallow":
		return ModeShallow, nil
	default:
		return ModeInherit, fmt.Errorf("unknown mode %q (supported: inherit, merge, combine, shallow)", s)
	}
}
