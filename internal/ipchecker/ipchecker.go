// Package ipchecker gates handlers behind a trusted subnet. It is used
// for the internal stats endpoint, which must not be reachable from
// arbitrary clients.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker validates that a request originates from the configured
// trusted subnet. With no subnet configured, every check fails closed.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New parses the trusted subnet in CIDR notation (e.g. "10.0.0.0/8").
// An empty string leaves the checker in the fail-closed state.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("ipchecker.New: %w", err)
	}

	return &IPChecker{trustedSubnet: allowedNet}, nil
}

// RequireTrusted rejects requests from outside the trusted subnet with
// 403 before they reach the wrapped handler.
func (checker *IPChecker) RequireTrusted(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		clientIP, err := clientIPFromRequest(request)
		if err != nil || !checker.isTrusted(clientIP) {
			response.WriteHeader(http.StatusForbidden)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

func (checker *IPChecker) isTrusted(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && checker.trustedSubnet.Contains(clientIP)
}

// clientIPFromRequest checks X-Real-IP, then the first entry of
// X-Forwarded-For, then RemoteAddr.
func clientIPFromRequest(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
		return ip, nil
	}

	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip, nil
		}
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("ipchecker: cannot parse remote address: %w", err)
	}

	return net.ParseIP(host), nil
}
