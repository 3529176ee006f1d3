package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Resolver turns a host name into candidate addresses. *net.Resolver
// satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Dial resolves host and tries each candidate endpoint in order until one
// accepts the connection.
func Dial(ctx context.Context, resolver Resolver, host, port string) (*Conn, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("failed to resolve %s: no addresses", host)
	}

	var dialer net.Dialer
	var errs []error
	for _, addr := range addrs {
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, port))
		if err == nil {
			return NewConn(conn), nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("failed to connect to %s: %w", net.JoinHostPort(host, port), errors.Join(errs...))
}
