package modulerpc

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// UnknownHost is the placeholder some registrations carry instead of a host.
const UnknownHost = "None"

// WildcardHost replaces UnknownHost so the module stays addressable by port.
const WildcardHost = "0.0.0.0"

// createResponse creates a StdResponse with the given body and error
func createResponse[T any](body T, err error) StdResponse[T] {
	if err != nil {
		errMsg := err.Error()
		return StdResponse[T]{Body: body, Error: &errMsg}
	}
	return StdResponse[T]{Body: body}
}

// NormalizeAddress rewrites "None:<port>" to "0.0.0.0:<port>"; other values are
// returned unchanged.
func NormalizeAddress(raw string) string {
	if strings.HasPrefix(raw, UnknownHost+":") {
		return WildcardHost + strings.TrimPrefix(raw, UnknownHost)
	}
	return raw
}

// ParseAddress splits "host:port" into an Address.
func ParseAddress(raw string) (Address, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(raw))
	if err != nil {
		return Address{}, fmt.Errorf("parse address %q: %w", raw, err)
	}
	if host == "" {
		return Address{}, fmt.Errorf("parse address %q: empty host", raw)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Address{}, fmt.Errorf("parse address %q: invalid port", raw)
	}
	return Address{Host: host, Port: port}, nil
}
