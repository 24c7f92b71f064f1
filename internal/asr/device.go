package asr

import (
	"fmt"
	"strconv"
	"strings"
)

// Device is a parsed inference device such as "cpu" or "cuda:1".
type Device struct {
	Kind  string
	Index int // -1 when unspecified
}

func (d Device) String() string {
	if d.Index >= 0 {
		return fmt.Sprintf("%s:%d", d.Kind, d.Index)
	}
	return d.Kind
}

// IsCPU reports whether inference is pinned to the CPU.
func (d Device) IsCPU() bool { return d.Kind == "cpu" }

// ParseDevice accepts cpu, auto, metal, cuda and cuda:<n>.
func ParseDevice(s string) (Device, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Device{Kind: "cpu", Index: -1}, nil
	}
	kind, idx, hasIdx := strings.Cut(s, ":")
	switch kind {
	case "cpu", "auto", "metal":
		if hasIdx {
			return Device{}, fmt.Errorf("device %q does not take an index", kind)
		}
		return Device{Kind: kind, Index: -1}, nil
	case "cuda":
		if !hasIdx {
			return Device{Kind: kind, Index: -1}, nil
		}
		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 {
			return Device{}, fmt.Errorf("bad cuda device index %q", idx)
		}
		return Device{Kind: kind, Index: n}, nil
	default:
		return Device{}, fmt.Errorf("unknown device %q (want cpu, auto, metal, cuda or cuda:N)", s)
	}
}
