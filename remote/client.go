package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/chazu/oapi/bridge"
	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/wire"
)

// Client is a native.Dispatcher that forwards every call to a remote
// Server.
type Client struct {
	call *connect.Client[wire.Call, wire.Call]
}

// NewClient returns a Client for the server at baseURL. A nil httpClient
// means http.DefaultClient. Pass connect.WithGRPC() to use the gRPC
// protocol.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts = append([]connect.ClientOption{connect.WithCodec(cborCodec{})}, opts...)
	return &Client{
		call: connect.NewClient[wire.Call, wire.Call](
			httpClient,
			strings.TrimRight(baseURL, "/")+DispatchProcedure,
			opts...,
		),
	}
}

// Dispatch implements native.Dispatcher.
func (c *Client) Dispatch(method string, slots []native.Slot) (native.Code, error) {
	return c.DispatchContext(context.Background(), method, slots)
}

// DispatchContext is Dispatch with a context for the HTTP round trip.
// A server that has no connected object reports bridge.ErrNotLoaded.
func (c *Client) DispatchContext(ctx context.Context, method string, slots []native.Slot) (native.Code, error) {
	res, err := c.call.CallUnary(ctx, connect.NewRequest(&wire.Call{Method: method, In: slots}))
	if err != nil {
		if connect.CodeOf(err) == connect.CodeFailedPrecondition {
			return native.CodeFailed, fmt.Errorf("%w: %v", bridge.ErrNotLoaded, err)
		}
		return native.CodeFailed, err
	}
	if err := wire.CopyBack(slots, res.Msg.Out); err != nil {
		return native.CodeFailed, fmt.Errorf("remote %s: %w", method, err)
	}
	return res.Msg.Code, nil
}
