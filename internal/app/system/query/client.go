// Package query is the data-fetching client handed to the component tree
// alongside the store. It speaks GraphQL over HTTP (a JSON POST of query and
// variables) and caches results at two levels: a per-client map that can be
// extracted into the rendered page and restored on the other side, and an
// optional shared cache (Redis) with a TTL.
package query

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/dalemusser/stratassr/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ErrNoEndpoint is returned when a request misses every cache and the client
// has nowhere to send it.
var ErrNoEndpoint = errors.New("query: no endpoint configured")

// Request is one GraphQL operation.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Key identifies the request in caches.
func (r Request) Key() string {
	b, _ := json.Marshal(r)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (r Request) isMutation() bool {
	return strings.HasPrefix(strings.TrimSpace(r.Query), "mutation")
}

// GraphQLError is one entry of a response's errors array.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// ResponseError carries the errors a server returned for a request.
type ResponseError struct {
	Errors []GraphQLError
}

func (e *ResponseError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ge := range e.Errors {
		msgs[i] = ge.Message
	}
	return "query: " + strings.Join(msgs, "; ")
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// Cache stores raw result data by request key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Options configures a Client.
type Options struct {
	Endpoint   string       // GraphQL endpoint; empty means cache-only
	HTTPClient *http.Client // default http.DefaultClient
	Shared     Cache        // optional cache shared between clients
	Logger     *zap.Logger
}

// Client fetches and caches query results.
type Client struct {
	endpoint string
	http     *http.Client
	shared   Cache
	logger   *zap.Logger

	mu    sync.Mutex
	local map[string]json.RawMessage
}

// New creates a client with an empty local cache.
func New(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		endpoint: opts.Endpoint,
		http:     opts.HTTPClient,
		shared:   opts.Shared,
		logger:   opts.Logger,
		local:    make(map[string]json.RawMessage),
	}
}

// Fork returns a client with the same endpoint and shared cache but its own
// empty local cache. Servers fork one client per render.
func (c *Client) Fork() *Client {
	return &Client{
		endpoint: c.endpoint,
		http:     c.http,
		shared:   c.shared,
		logger:   c.logger,
		local:    make(map[string]json.RawMessage),
	}
}

// Query runs req and decodes its data into out. Queries are answered from the
// local cache, then the shared cache, then the endpoint. Mutations always go
// to the endpoint and are not cached.
func (c *Client) Query(ctx context.Context, req Request, out any) error {
	data, err := c.fetch(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("query: decode data: %w", err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, req Request) (json.RawMessage, error) {
	mutation := req.isMutation()
	key := req.Key()

	if !mutation {
		if data, ok := c.lookupLocal(key); ok {
			return data, nil
		}
		if c.shared != nil {
			data, ok, err := c.shared.Get(ctx, key)
			if err != nil {
				c.logger.Warn("query shared cache read failed", zap.Error(err))
			} else if ok {
				c.storeLocal(key, data)
				return data, nil
			}
		}
	}

	data, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}
	if mutation {
		return data, nil
	}

	c.storeLocal(key, data)
	if c.shared != nil {
		if err := c.shared.Set(ctx, key, data); err != nil {
			c.logger.Warn("query shared cache write failed", zap.Error(err))
		}
	}
	return data, nil
}

func (c *Client) post(ctx context.Context, req Request) (json.RawMessage, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("query: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Query())
	defer cancel()

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("query: build request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("query: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("query: endpoint returned %d", resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("query: decode response: %w", err)
	}
	if len(r.Errors) > 0 {
		return nil, &ResponseError{Errors: r.Errors}
	}
	return r.Data, nil
}

func (c *Client) lookupLocal(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.local[key]
	return data, ok
}

func (c *Client) storeLocal(key string, data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[key] = data
}

// Extract returns a copy of the local cache for embedding in a page.
func (c *Client) Extract() map[string]json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]json.RawMessage, len(c.local))
	for k, v := range c.local {
		out[k] = v
	}
	return out
}

// Restore merges an extracted cache into the local cache.
func (c *Client) Restore(snapshot map[string]json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range snapshot {
		c.local[k] = v
	}
}
