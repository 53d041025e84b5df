package upi

import (
	"fmt"
	"strings"
)

// ServicePrefix is the gRPC package under which every UPI module is exposed.
const ServicePrefix = "upi."

// ParseName splits a UPI function name into its module and function
// components.
//
// For example, `net.get_iface_hw_addr` is parsed into `net` and
// `get_iface_hw_addr`.
func ParseName(name string) (string, string, error) {
	pos := strings.Index(name, ".")
	if pos <= 0 || pos == len(name)-1 {
		return "", "", fmt.Errorf("%w: UPI name %q must be in format `module.function`", ErrInvalidArgument, name)
	}

	module, function := name[:pos], name[pos+1:]
	if strings.ContainsAny(function, "./") || strings.Contains(module, "/") {
		return "", "", fmt.Errorf("%w: UPI name %q must be in format `module.function`", ErrInvalidArgument, name)
	}

	return module, function, nil
}

// ServiceName returns the gRPC service name of the given module.
func ServiceName(module string) string {
	return ServicePrefix + module
}

// FullMethod returns the gRPC full method name of the given UPI function,
// such as `/upi.net/get_iface_hw_addr`.
func FullMethod(name string) (string, error) {
	module, function, err := ParseName(name)
	if err != nil {
		return "", err
	}

	return "/" + ServiceName(module) + "/" + function, nil
}

// NameFromService converts a gRPC service and method pair back to a UPI
// function name.
func NameFromService(service string, method string) (string, error) {
	module, ok := strings.CutPrefix(service, ServicePrefix)
	if !ok || module == "" {
		return "", fmt.Errorf("%w: service %q is not a UPI module", ErrUnknownFunction, service)
	}

	return module + "." + method, nil
}

// SplitFullMethod splits a gRPC full method name, such as
// `/upi.net/get_iface_hw_addr`, into its service and method components.
func SplitFullMethod(fullMethod string) (string, string, error) {
	name, ok := strings.CutPrefix(fullMethod, "/")
	if ok {
		service, method, found := strings.Cut(name, "/")
		if found && service != "" && method != "" && !strings.Contains(method, "/") {
			return service, method, nil
		}
	}

	return "", "", fmt.Errorf("%w: method name %q must be in format `/package.service/method`", ErrInvalidArgument, fullMethod)
}
