package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 1 << 20

// Client talks to the platform REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a client for baseURL. Every request is bounded by
// timeout in addition to the caller's context.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

var (
	_ ports.AllowlistAPI  = (*Client)(nil)
	_ ports.KeyAPI        = (*Client)(nil)
	_ ports.DeploymentAPI = (*Client)(nil)
	_ ports.LoginAPI      = (*Client)(nil)
)

// IsWhitelisted calls GET /api/login/whitelist/<address>. The exists field
// is read leniently: true, "true" and 1 all count. A body that is not JSON
// yields core.ErrMalformedResponse.
func (c *Client) IsWhitelisted(ctx context.Context, address string) (bool, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/login/whitelist/"+url.PathEscape(address), "", nil)
	if err != nil {
		return false, err
	}

	if !gjson.ValidBytes(body) {
		return false, fmt.Errorf("whitelist response: %w", core.ErrMalformedResponse)
	}
	return gjson.GetBytes(body, "exists").Bool(), nil
}

// RequestChallenge calls POST /api/login/challenge and returns the
// challenge token together with the message the wallet has to sign.
func (c *Client) RequestChallenge(ctx context.Context, address string) (string, string, error) {
	payload, err := json.Marshal(map[string]string{"address": address})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal challenge request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/login/challenge", "", payload)
	if err != nil {
		return "", "", err
	}

	result := gjson.GetManyBytes(body, "token", "message")
	if !gjson.ValidBytes(body) || result[0].Str == "" || result[1].Str == "" {
		return "", "", fmt.Errorf("challenge response: %w", core.ErrMalformedResponse)
	}
	return result[0].Str, result[1].Str, nil
}

// Login calls POST /api/login and returns the session token.
func (c *Client) Login(ctx context.Context, challengeToken, signature string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"challenge": challengeToken,
		"signature": signature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal login request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/login", "", payload)
	if err != nil {
		return "", err
	}

	token := gjson.GetBytes(body, "token")
	if !gjson.ValidBytes(body) || token.Type != gjson.String || token.Str == "" {
		return "", fmt.Errorf("login response without token: %w", core.ErrMalformedResponse)
	}
	return token.Str, nil
}

// CreateKey calls POST /api/keys and returns the issued secret.
func (c *Client) CreateKey(ctx context.Context, token string, req *core.SignedKeyRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal key request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/keys", token, payload)
	if err != nil {
		return "", err
	}

	secret := gjson.GetBytes(body, "token")
	if !gjson.ValidBytes(body) || secret.Type != gjson.String || secret.Str == "" {
		return "", fmt.Errorf("key response without token: %w", core.ErrMalformedResponse)
	}
	return secret.Str, nil
}

// ListDeployments calls GET /api/apps/<app_id>/deployments. Timestamps may
// be RFC 3339 strings or Unix milliseconds.
func (c *Client) ListDeployments(ctx context.Context, token, appID string) ([]core.Deployment, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/apps/"+url.PathEscape(appID)+"/deployments", token, nil)
	if err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || (result.Type != gjson.Null && !result.IsArray()) {
		return nil, fmt.Errorf("deployments response: %w", core.ErrMalformedResponse)
	}

	deployments := []core.Deployment{}
	var parseErr error
	result.ForEach(func(_, item gjson.Result) bool {
		ts, err := parseTimestamp(item.Get("timestamp"))
		if err != nil {
			parseErr = err
			return false
		}
		deployments = append(deployments, core.Deployment{
			DeployID:  item.Get("deploy_id").String(),
			SID:       item.Get("sid").String(),
			Timestamp: ts,
		})
		return true
	})
	if parseErr != nil {
		return nil, fmt.Errorf("deployments response: %w: %v", core.ErrMalformedResponse, parseErr)
	}
	return deployments, nil
}

func parseTimestamp(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC(), nil
	case gjson.String:
		return time.Parse(time.RFC3339Nano, v.Str)
	default:
		return time.Time{}, fmt.Errorf("bad timestamp %q", v.Raw)
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: %w: %d %s", method, path, core.ErrUnexpectedStatus,
			resp.StatusCode, strings.TrimSpace(gjson.GetBytes(body, "error").String()))
	}
	return body, nil
}
