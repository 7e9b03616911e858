package framework

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned for an equalization mode other than divide or global.
var ErrUnknownMode = errors.New("unknown equalization mode")

// Mode selects how a stream is equalized.
type Mode string

const (
	// ModeDivide bisects the stream and equalizes each leaf locally.
	ModeDivide Mode = "divide"
	// ModeGlobal equalizes the stream against its own histogram in one pass.
	ModeGlobal Mode = "global"
)

// ParseMode resolves a mode name. The empty string selects ModeDivide.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeDivide:
		return ModeDivide, nil
	case ModeGlobal:
		return ModeGlobal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}
