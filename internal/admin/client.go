package admin

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"vectortube/internal/catalog"
	"vectortube/internal/enquiry"
)

type Client struct {
	conn  grpc.ClientConnInterface
	token string
	close func() error
}

// Dial connects to an admin server without transport security.
func Dial(addr, token string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	c := NewClient(conn, token)
	c.close = conn.Close
	return c, nil
}

// NewClient wraps an existing connection. token may be empty.
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token, close: func() error { return nil }}
}

func (c *Client) Close() error {
	return c.close()
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

// Reconcile asks the server to compare storage against the catalog. A zero
// grace disables the grace window; a negative one leaves the server default.
func (c *Client) Reconcile(ctx context.Context, remove bool, grace time.Duration) (catalog.Report, error) {
	fields := map[string]any{"remove": remove}
	if grace >= 0 {
		fields["grace_seconds"] = grace.Seconds()
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return catalog.Report{}, err
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), reconcileMethod, req, resp); err != nil {
		return catalog.Report{}, err
	}

	var report catalog.Report
	if err := fromStruct(resp, &report); err != nil {
		return catalog.Report{}, err
	}
	return report, nil
}

func (c *Client) ListEnquiries(ctx context.Context) ([]enquiry.Enquiry, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), listEnquiriesMethod, &structpb.Struct{}, resp); err != nil {
		return nil, err
	}

	var out struct {
		Enquiries []enquiry.Enquiry `json:"enquiries"`
	}
	if err := fromStruct(resp, &out); err != nil {
		return nil, err
	}
	if out.Enquiries == nil {
		out.Enquiries = []enquiry.Enquiry{}
	}
	return out.Enquiries, nil
}
