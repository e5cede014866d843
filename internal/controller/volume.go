package controller

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinVolume and MaxVolume bound the output volume.
	MinVolume = 0
	MaxVolume = 100

	// volumeStep is the change applied by the up and down keywords.
	volumeStep = 10
)

// ErrInvalidVolume is returned for directives that match no rule.
var ErrInvalidVolume = errors.New(`volume must be 0-100, +N, -N, "up" or "down"`)

// VolumeDirective is a parsed volume change.
type VolumeDirective struct {
	// Relative is true for +N, -N, up and down.
	Relative bool
	// Value is the signed delta when Relative, the absolute level otherwise.
	Value int
}

// ParseVolume parses a directive. Rules are tried in order and the first
// match wins: keyword, signed relative change, absolute level.
func ParseVolume(directive string) (VolumeDirective, error) {
	directive = strings.ToLower(strings.TrimSpace(directive))

	switch directive {
	case "up":
		return VolumeDirective{Relative: true, Value: volumeStep}, nil
	case "down":
		return VolumeDirective{Relative: true, Value: -volumeStep}, nil
	}

	if strings.HasPrefix(directive, "+") || strings.HasPrefix(directive, "-") {
		if !isDigits(directive[1:]) {
			return VolumeDirective{}, fmt.Errorf("%q: %w", directive, ErrInvalidVolume)
		}

		delta, err := strconv.Atoi(directive[1:])
		if errors.Is(err, strconv.ErrRange) {
			delta = MaxVolume
		} else if err != nil {
			return VolumeDirective{}, fmt.Errorf("%q: %w", directive, ErrInvalidVolume)
		}

		// No step larger than the whole range changes the outcome.
		delta = min(delta, MaxVolume)

		if directive[0] == '-' {
			delta = -delta
		}

		return VolumeDirective{Relative: true, Value: delta}, nil
	}

	if !isDigits(directive) {
		return VolumeDirective{}, fmt.Errorf("%q: %w", directive, ErrInvalidVolume)
	}

	level, err := strconv.Atoi(directive)
	if err != nil {
		return VolumeDirective{}, fmt.Errorf("%q: %w", directive, ErrInvalidVolume)
	}

	return VolumeDirective{Value: level}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// Apply returns the clamped target level for the current level.
func (d VolumeDirective) Apply(current int) int {
	target := d.Value
	if d.Relative {
		target = min(max(current, MinVolume), MaxVolume) + min(max(d.Value, -MaxVolume), MaxVolume)
	}

	return min(max(target, MinVolume), MaxVolume)
}
