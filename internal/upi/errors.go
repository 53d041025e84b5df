package upi

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrUnknownFunction is returned when no module exports the requested
	// UPI function.
	ErrUnknownFunction = errors.New("unknown UPI function")
	// ErrNotFound is returned when the object a UPI function refers to, such
	// as a network interface, does not exist on the host.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is returned when UPI arguments are malformed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicateFunction is returned when two modules export the same UPI
	// function.
	ErrDuplicateFunction = errors.New("duplicate UPI function")
)

// Status converts an error returned by a UPI function into a gRPC status
// error.
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrUnknownFunction):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// FromStatus converts a gRPC status error back into an error that matches
// the sentinel errors of this package.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unimplemented:
		return fmt.Errorf("%w: %s", ErrUnknownFunction, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	default:
		return err
	}
}
