package signing

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
	"github.com/layer-3/garuda/service"
)

const capacityTokenHeader = "X-Capacity-Token"

// NetworkClient talks to the custodial signing network over HTTP. Signature
// requests carry the shared capacity credential; the cache refreshes it on
// expiry.
type NetworkClient struct {
	baseURL  string
	http     *http.Client
	capacity *service.CapacityCache
}

var (
	_ ports.SigningNetwork = (*NetworkClient)(nil)
	_ ports.CapacityMinter = (*NetworkClient)(nil)
)

// NewNetworkClient creates a client for the signing network at baseURL.
// Wire the capacity cache afterwards with UseCapacityCache, since the cache
// itself mints through this client.
func NewNetworkClient(baseURL string, timeout time.Duration) *NetworkClient {
	return &NetworkClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// UseCapacityCache attaches the shared capacity-credential cache.
func (c *NetworkClient) UseCapacityCache(cache *service.CapacityCache) {
	c.capacity = cache
}

type signatureRequest struct {
	SessionToken string `json:"session_token"`
	Account      string `json:"account"`
	Digest       string `json:"digest"`
}

type signatureResponse struct {
	Signature string `json:"signature"`
}

// RequestSignature submits a digest for signing under the session.
func (c *NetworkClient) RequestSignature(ctx context.Context, session *core.SessionCredential, account common.Address, digest []byte) ([]byte, error) {
	req := signatureRequest{
		SessionToken: session.Token,
		Account:      account.Hex(),
		Digest:       hexutil.Encode(digest),
	}

	var headers map[string]string
	if c.capacity != nil {
		cred, err := c.capacity.RefreshIfExpired(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh capacity credential: %w", err)
		}
		headers = map[string]string{capacityTokenHeader: cred.Token}
	}

	var resp signatureResponse
	if err := c.post(ctx, "/v1/signatures", req, headers, &resp); err != nil {
		return nil, err
	}

	sig, err := hexutil.Decode(resp.Signature)
	if err != nil {
		// hexutil requires the 0x prefix; tolerate bare hex too.
		sig, err = hex.DecodeString(resp.Signature)
		if err != nil {
			return nil, fmt.Errorf("malformed signature in response: %w", err)
		}
	}
	return sig, nil
}

type sessionRequest struct {
	IdentityToken   string `json:"identity_token"`
	Account         string `json:"account"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueSession exchanges an identity token for an ephemeral session.
func (c *NetworkClient) IssueSession(ctx context.Context, identityToken string, account common.Address, duration time.Duration) (*core.SessionCredential, error) {
	req := sessionRequest{
		IdentityToken:   identityToken,
		Account:         account.Hex(),
		DurationSeconds: int64(duration / time.Second),
	}

	var resp sessionResponse
	if err := c.post(ctx, "/v1/sessions", req, nil, &resp); err != nil {
		return nil, err
	}

	return &core.SessionCredential{
		Subject:   account,
		Token:     resp.Token,
		IssuedAt:  resp.IssuedAt,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

type controllersResponse struct {
	Controllers []string `json:"controllers"`
}

// PermittedControllers fetches the permission registry entry for an account.
func (c *NetworkClient) PermittedControllers(ctx context.Context, account common.Address) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/accounts/"+account.Hex()+"/controllers", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	var resp controllersResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return resp.Controllers, nil
}

type capacityResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MintCapacityCredential requests a fresh rate-limit credential. Minting is
// idempotent on the network side.
func (c *NetworkClient) MintCapacityCredential(ctx context.Context) (core.CapacityCredential, error) {
	var resp capacityResponse
	if err := c.post(ctx, "/v1/capacity", struct{}{}, nil, &resp); err != nil {
		return core.CapacityCredential{}, err
	}
	return core.CapacityCredential{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

func (c *NetworkClient) post(ctx context.Context, path string, body interface{}, headers map[string]string, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	return c.do(httpReq, out)
}

func (c *NetworkClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("signing network request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("signing network returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
