package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"solana-copurchase/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout               = 30 * time.Second
	DefaultAttemptsPerCredential = 2
	DefaultRetryDelay            = 500 * time.Millisecond
	DefaultQueryParam            = "api-key"
)

// AuthMode says where a provider expects the credential.
type AuthMode int

const (
	// AuthPath appends the key as the last path segment: {base}/{key}.
	AuthPath AuthMode = iota
	// AuthQuery passes the key as a query parameter: {base}/?api-key={key}.
	AuthQuery
)

// CredentialPool hands out API keys round-robin. Safe for concurrent use.
type CredentialPool struct {
	keys   []string
	cursor atomic.Uint64
}

// NewCredentialPool creates a pool from keys, dropping blanks.
// An empty pool yields a single keyless credential.
func NewCredentialPool(keys ...string) *CredentialPool {
	p := &CredentialPool{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			p.keys = append(p.keys, k)
		}
	}
	return p
}

// Size returns the number of credentials, at least 1.
func (p *CredentialPool) Size() int {
	if p == nil || len(p.keys) == 0 {
		return 1
	}
	return len(p.keys)
}

// Next returns the next key and advances the cursor.
func (p *CredentialPool) Next() string {
	if p == nil || len(p.keys) == 0 {
		return ""
	}
	n := p.cursor.Add(1) - 1
	return p.keys[n%uint64(len(p.keys))]
}

// Provider is one upstream JSON-RPC service with a fixed base URL.
type Provider struct {
	Name        string
	BaseURL     string
	Auth        AuthMode
	QueryParam  string // AuthQuery only; defaults to "api-key"
	Credentials *CredentialPool
}

// endpoint builds the request URL for key.
func (p *Provider) endpoint(key string) string {
	base := strings.TrimRight(p.BaseURL, "/")
	if key == "" {
		return base
	}
	if p.Auth == AuthQuery {
		param := p.QueryParam
		if param == "" {
			param = DefaultQueryParam
		}
		return base + "/?" + url.QueryEscape(param) + "=" + url.QueryEscape(key)
	}
	return base + "/" + url.PathEscape(key)
}

// RetryPolicy is a fixed-delay retry budget scaled by pool size.
type RetryPolicy struct {
	AttemptsPerCredential int
	Delay                 time.Duration
}

// DefaultRetryPolicy returns 2 attempts per credential with 0.5s between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		AttemptsPerCredential: DefaultAttemptsPerCredential,
		Delay:                 DefaultRetryDelay,
	}
}

// Attempts returns the total attempt budget for a pool of the given size.
func (r RetryPolicy) Attempts(credentials int) int {
	per := r.AttemptsPerCredential
	if per < 1 {
		per = 1
	}
	if credentials < 1 {
		credentials = 1
	}
	return per * credentials
}

func (r RetryPolicy) backOff(ctx context.Context, credentials int) backoff.BackOff {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(r.Delay), uint64(r.Attempts(credentials)-1))
	return backoff.WithContext(b, ctx)
}

// Gateway sends JSON-RPC calls to providers, rotating credentials and
// retrying failed attempts. It never returns transport errors to callers:
// an exhausted call yields a nil result.
type Gateway struct {
	client    *http.Client
	retry     RetryPolicy
	logger    zerolog.Logger
	requestID atomic.Uint64
}

// GatewayOption configures Gateway.
type GatewayOption func(*Gateway)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) GatewayOption {
	return func(g *Gateway) {
		g.retry = p
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = l
	}
}

// NewGateway creates a Gateway.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client: &http.Client{Timeout: DefaultTimeout},
		retry:  DefaultRetryPolicy(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Call performs method on provider. The result is nil when every attempt
// failed, the provider answered with a JSON-RPC error, or the result was null.
func (g *Gateway) Call(ctx context.Context, provider *Provider, method string, params interface{}) json.RawMessage {
	start := time.Now()
	log := g.logger.With().Str("provider", provider.Name).Str("method", method).Logger()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      g.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		log.Error().Err(err).Msg("marshal request")
		return nil
	}

	var (
		result  json.RawMessage
		attempt int
	)
	operation := func() error {
		attempt++
		res, err := g.attempt(ctx, provider.endpoint(provider.Credentials.Next()), body)
		if err != nil {
			var rpcErr *rpcError
			if errors.As(err, &rpcErr) {
				// RPC errors are not retried
				return backoff.Permanent(err)
			}
			log.Debug().Err(err).Int("attempt", attempt).Msg("rpc attempt failed")
			return err
		}
		result = res
		return nil
	}

	err = backoff.Retry(operation, g.retry.backOff(ctx, provider.Credentials.Size()))
	observability.RecordRPCLatency(method, time.Since(start).Seconds())

	if err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) {
			observability.RecordRPCOutcome(provider.Name, method, "rpc_error")
			log.Warn().Int("code", rpcErr.Code).Str("message", rpcErr.Message).Msg("rpc error response")
		} else {
			observability.RecordRPCOutcome(provider.Name, method, "exhausted")
			log.Warn().Err(err).Int("attempts", attempt).Msg("rpc call exhausted retries")
		}
		return nil
	}

	observability.RecordRPCOutcome(provider.Name, method, "ok")
	if len(result) == 0 || string(result) == "null" {
		return nil
	}
	return result
}

// attempt performs a single HTTP round trip. Returned errors never carry
// the endpoint, since it may embed a credential.
func (g *Gateway) attempt(ctx context.Context, endpoint string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", stripURL(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", stripURL(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// stripURL drops the request URL from a *url.Error, keeping the operation
// and the underlying cause.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
