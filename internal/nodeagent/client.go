// Package nodeagent is the narrow HTTP client for the per-node agent API.
// It is the only component that talks to nodes; everything above it sees
// normalized quota rows and typed unreachability errors.
package nodeagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/proxyfleet/console-server/internal/domain/endpoint"
	"github.com/proxyfleet/console-server/internal/domain/node"
	"github.com/proxyfleet/console-server/internal/domain/quota"
	"go.uber.org/zap"
)

// UnreachableError means a node agent could not be reached or did not
// produce usable data. It feeds the partial/unreachable-nodes signal of a
// quota summary instead of failing the whole fetch.
type UnreachableError struct {
	NodeID int64
	Err    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("node %d unreachable: %v", e.NodeID, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Client is what the services depend on; swap in a fake for tests.
type Client interface {
	// FetchQuotaUsage returns one normalized row per requested user from the
	// node's agent. Transport failures and agent-side errors come back as
	// *UnreachableError.
	FetchQuotaUsage(ctx context.Context, n *node.Node, userIDs []int64) ([]quota.Row, error)

	// PushEndpoint submits a provisioned listener to the owning node's agent.
	PushEndpoint(ctx context.Context, n *node.Node, rec *endpoint.Record) error
}

type HTTPClient struct {
	log *zap.Logger
	hc  *http.Client
}

// NewHTTPClient builds the production client. timeout bounds each agent
// call on top of whatever deadline the caller's context carries.
func NewHTTPClient(log *zap.Logger, timeout time.Duration) *HTTPClient {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		log: log.Named("nodeagent"),
		hc:  &http.Client{Timeout: timeout},
	}
}

type quotaUsageRequest struct {
	UserIDs []int64 `json:"user_ids"`
}

type quotaUsageResponse struct {
	Rows []quota.RowResource `json:"rows"`
}

func (c *HTTPClient) FetchQuotaUsage(ctx context.Context, n *node.Node, userIDs []int64) ([]quota.Row, error) {
	var out quotaUsageResponse
	if err := c.do(ctx, n, http.MethodPost, "/v1/quota-usage", quotaUsageRequest{UserIDs: userIDs}, &out); err != nil {
		return nil, &UnreachableError{NodeID: n.ID, Err: err}
	}
	return quota.NewRows(n.ID, out.Rows), nil
}

func (c *HTTPClient) PushEndpoint(ctx context.Context, n *node.Node, rec *endpoint.Record) error {
	payload := struct {
		EndpointID  int64                  `json:"endpoint_id"`
		Request     endpoint.CreateRequest `json:"request"`
		Credentials endpoint.Credentials   `json:"credentials"`
	}{rec.ID, rec.Request, rec.Credentials}

	return c.do(ctx, n, http.MethodPost, "/v1/endpoints", payload, nil)
}

// do runs one JSON round-trip against the agent. Any transport error or
// non-2xx status is returned as a plain error; FetchQuotaUsage wraps it.
func (c *HTTPClient) do(ctx context.Context, n *node.Node, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	url := strings.TrimSuffix(n.APIURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.APIToken)

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Cap the drained body; agent error pages are not trusted input.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.log.Warn("agent call failed",
			zap.Int64("node_id", n.ID),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("agent returned %d: %s", resp.StatusCode, firstLine(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
