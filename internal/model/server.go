package model

import (
	"context"
	"net"
)

// SecurityLayer opens the listener a transport serves on, plain or TLS.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is a transport (REST or gRPC) with a managed lifecycle.
// Start blocks until the server stops; a graceful Stop makes it return nil.
type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}
