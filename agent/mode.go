package agent

import "fmt"

// Mode is the agent operation mode.
type Mode string

const (
	// ModeLocal serves UPI calls in-process only.
	ModeLocal Mode = "local"
	// ModeRemote additionally exposes UPI modules through the gRPC gateway.
	ModeRemote Mode = "remote"
)

func (m Mode) String() string {
	return string(m)
}

// Validate checks whether the mode is known.
func (m Mode) Validate() error {
	switch m {
	case ModeLocal, ModeRemote:
		return nil
	default:
		return fmt.Errorf("unknown agent mode %q: must be one of %q, %q", string(m), ModeLocal, ModeRemote)
	}
}

// UnmarshalText parses and validates the mode.
func (m *Mode) UnmarshalText(text []byte) error {
	mode := Mode(text)
	if err := mode.Validate(); err != nil {
		return err
	}
	*m = mode
	return nil
}
