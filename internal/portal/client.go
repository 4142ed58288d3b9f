// Package portal implements the HTTP client for a module portal. The portal
// is a black box reached through one request/response operation per concern;
// everything here is translating between the wire envelope and the engine's
// types, plus discriminating the three remote error codes the user sees
// distinct messages for.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lmc/internal/identity"
	"lmc/internal/schema"
)

const (
	// DefaultTimeout bounds a single portal request.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries bounds retry attempts for server errors.
	DefaultMaxRetries = 2
	// DefaultRetryBaseDelay is the first backoff step.
	DefaultRetryBaseDelay = 250 * time.Millisecond
	// DefaultMaxBodySize caps a response body read.
	DefaultMaxBodySize = 16 << 20
)

// Client is an HTTP client for one portal.
type Client struct {
	portalID string
	baseURL  string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

// NewClient creates a client for the given portal host. The token is sent
// as a bearer credential on every request.
func NewClient(portalID, host, token string, logger *slog.Logger) *Client {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &Client{
		portalID: portalID,
		baseURL:  strings.TrimRight(base, "/"),
		token:    token,
		client:   &http.Client{Timeout: DefaultTimeout},
		logger:   logger,
	}
}

// PortalID returns the portal this client talks to.
func (c *Client) PortalID() string {
	return c.portalID
}

// retryConfig configures retry behavior.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultRetryBaseDelay,
		maxDelay:   5 * time.Second,
	}
}

// doRequest performs an HTTP request with retry on server errors. Client
// errors (4xx) are returned to the caller without retrying.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, query url.Values) (*http.Response, error) {
	cfg := defaultRetryConfig()

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid portal URL: %w", err)
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<uint(attempt-1))
			if delay > cfg.maxDelay {
				delay = cfg.maxDelay
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			if c.logger != nil {
				c.logger.Debug("Retrying portal request",
					"portal", c.portalID,
					"attempt", attempt+1,
					"url", u.String(),
				)
			}
		}

		var reader io.Reader
		if body != nil {
			reader = strings.NewReader(string(body))
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "lmc-composer/1.0")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", cfg.maxRetries, lastErr)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.call(ctx, http.MethodGet, path, nil, query)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.call(ctx, http.MethodPost, path, data, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body []byte, query url.Values) ([]byte, error) {
	resp, err := c.doRequest(ctx, method, path, body, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(resp.StatusCode, data)
	}
	return data, nil
}

// envelope is the portal's response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorInfo      `json:"error,omitempty"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// parseResponse parses a portal response envelope into T.
func parseResponse[T any](body []byte) (*T, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if env.Error != nil {
		return nil, &PortalError{Code: env.Error.Code, Message: env.Error.Message}
	}
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response data: %w", err)
	}
	return &out, nil
}

func modulePath(mt identity.ModuleType, moduleID int) string {
	return fmt.Sprintf("/api/modules/%s/%d", mt, moduleID)
}

// FetchModule fetches a module snapshot.
func (c *Client) FetchModule(ctx context.Context, mt identity.ModuleType, moduleID int) (*Module, error) {
	body, err := c.get(ctx, modulePath(mt, moduleID), nil)
	if err != nil {
		return nil, err
	}
	raw, err := parseResponse[map[string]interface{}](body)
	if err != nil {
		return nil, err
	}
	return moduleFromRaw(*raw), nil
}

// FetchModuleDetails fetches the full editable field snapshot together with
// the remote version counter.
func (c *Client) FetchModuleDetails(ctx context.Context, mt identity.ModuleType, moduleID int) (*Details, error) {
	body, err := c.get(ctx, modulePath(mt, moduleID)+"/details", nil)
	if err != nil {
		return nil, err
	}
	raw, err := parseResponse[map[string]interface{}](body)
	if err != nil {
		return nil, err
	}
	details := &Details{Raw: *raw}
	if v, ok := (*raw)["version"].(float64); ok {
		details.Version = int(v)
	}
	return details, nil
}

// FetchScript fetches the current remote body of one script facet, plus the
// module's version counter. The facet-to-field mapping differs per module
// type; the schema table resolves it.
func (c *Client) FetchScript(ctx context.Context, mt identity.ModuleType, moduleID int, facet identity.Facet) (string, int, error) {
	module, err := c.FetchModule(ctx, mt, moduleID)
	if err != nil {
		return "", 0, err
	}
	script, err := schema.ScriptBody(mt, facet, module.Raw)
	if err != nil {
		return "", 0, err
	}
	return script, module.Version, nil
}

// CommitModule submits a partial commit.
func (c *Client) CommitModule(ctx context.Context, mt identity.ModuleType, moduleID int, req *CommitRequest) (*CommitResult, error) {
	body, err := c.post(ctx, modulePath(mt, moduleID)+"/commit", req)
	if err != nil {
		return nil, err
	}
	return parseResponse[CommitResult](body)
}

// FetchAccessGroups lists the portal's access groups.
func (c *Client) FetchAccessGroups(ctx context.Context) ([]AccessGroup, error) {
	body, err := c.get(ctx, "/api/accessgroups", nil)
	if err != nil {
		return nil, err
	}
	groups, err := parseResponse[[]AccessGroup](body)
	if err != nil {
		return nil, err
	}
	return *groups, nil
}

// FetchLineageVersions lists a module lineage's versions, newest first.
func (c *Client) FetchLineageVersions(ctx context.Context, mt identity.ModuleType, lineageID int) ([]LineageVersion, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/modules/%s/lineage/%d/versions", mt, lineageID), nil)
	if err != nil {
		return nil, err
	}
	versions, err := parseResponse[[]LineageVersion](body)
	if err != nil {
		return nil, err
	}
	return *versions, nil
}

// FetchLineageVersion fetches one archived version's script body.
func (c *Client) FetchLineageVersion(ctx context.Context, mt identity.ModuleType, lineageID, version int) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/modules/%s/lineage/%d/versions/%d", mt, lineageID, version), nil)
	if err != nil {
		return "", err
	}
	payload, err := parseResponse[struct {
		Script string `json:"script"`
	}](body)
	if err != nil {
		return "", err
	}
	return payload.Script, nil
}

// Ping checks if the portal is reachable with the configured credential.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.FetchAccessGroups(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
