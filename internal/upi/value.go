package upi

import (
	"fmt"
	"math"
	"net"
	"net/netip"

	"google.golang.org/protobuf/types/known/structpb"
)

// NewValue converts a Go value into its wire representation.
//
// Besides the types natively supported by [structpb.NewValue], string slices,
// hardware addresses, IP prefixes and [fmt.Stringer] values are accepted.
func NewValue(v any) (*structpb.Value, error) {
	value, err := structpb.NewValue(normalize(v))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return value, nil
}

// NewArgs converts UPI call arguments into their wire representation.
func NewArgs(args ...any) (*structpb.ListValue, error) {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(args))}
	for idx, arg := range args {
		value, err := NewValue(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", idx, err)
		}
		list.Values = append(list.Values, value)
	}
	return list, nil
}

// AsInterface converts a wire value back into a Go value.
//
// A missing or null value converts to nil, which callers treat as an absent
// result.
func AsInterface(v *structpb.Value) any {
	if v == nil {
		return nil
	}
	return v.AsInterface()
}

func normalize(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case net.HardwareAddr:
		if len(v) == 0 {
			return nil
		}
		return v.String()
	case netip.Addr:
		return v.String()
	case netip.Prefix:
		return v.String()
	case []string:
		out := make([]any, 0, len(v))
		for _, s := range v {
			out = append(out, s)
		}
		return out
	case []map[string]any:
		out := make([]any, 0, len(v))
		for _, m := range v {
			out = append(out, normalize(m))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, normalize(item))
		}
		return out
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}

// Args is a read-only accessor over UPI call arguments.
type Args struct {
	list *structpb.ListValue
}

// NewArgsView wraps wire arguments.
func NewArgsView(list *structpb.ListValue) Args {
	return Args{list: list}
}

// Len returns the number of arguments.
func (m Args) Len() int {
	return len(m.list.GetValues())
}

// Expect fails unless exactly n arguments were passed.
func (m Args) Expect(n int) error {
	if m.Len() != n {
		return fmt.Errorf("%w: expected %d arguments, got %d", ErrInvalidArgument, n, m.Len())
	}
	return nil
}

// String returns the idx-th argument as a string.
func (m Args) String(idx int) (string, error) {
	value, err := m.value(idx)
	if err != nil {
		return "", err
	}

	s, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: argument %d must be a string", ErrInvalidArgument, idx)
	}
	return s.StringValue, nil
}

// Int returns the idx-th argument as an integer.
//
// Numbers travel as doubles on the wire, so fractional values are rejected.
func (m Args) Int(idx int) (int, error) {
	value, err := m.value(idx)
	if err != nil {
		return 0, err
	}

	n, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: argument %d must be a number", ErrInvalidArgument, idx)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: argument %d must be an integer", ErrInvalidArgument, idx)
	}
	return int(n.NumberValue), nil
}

// Any returns the idx-th argument as a Go value.
func (m Args) Any(idx int) (any, error) {
	value, err := m.value(idx)
	if err != nil {
		return nil, err
	}
	return value.AsInterface(), nil
}

func (m Args) value(idx int) (*structpb.Value, error) {
	if idx < 0 || idx >= m.Len() {
		return nil, fmt.Errorf("%w: missing argument %d", ErrInvalidArgument, idx)
	}
	return m.list.GetValues()[idx], nil
}
