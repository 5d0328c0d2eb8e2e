// Package transport provides network transport abstractions for the gateway.
// It handles HTTP proxy protocol concerns, allowing the service layer to work
// purely with domain types while supporting multiple interception modes.
package transport

import (
	"context"

	"github.com/calloway/swgate/internal/swg/domain"
	"github.com/calloway/swgate/internal/swg/services/gateway"
)

// ProxyTransport defines the interface for proxy transport implementations.
// Different modes (forward HTTP proxy, transparent interception) can implement
// this interface while providing the same decision contract to the service layer.
type ProxyTransport interface {
	// Start begins accepting client connections and routing every request
	// through the provided decider. The transport handles all protocol
	// concerns and serves the block page on denied requests.
	Start(ctx context.Context, decider gateway.RequestDecider) error

	// Stop gracefully shuts down the transport, closing listeners and
	// in-flight connections.
	Stop() error

	// Address returns the network address the transport is bound to.
	Address() string
}

// BlockPageRenderer produces the HTML body served on a blocked request.
type BlockPageRenderer interface {
	Render(name string, cat domain.Category) ([]byte, error)
}
