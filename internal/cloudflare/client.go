// Package cloudflare implements the Cloudflare v4 API client used to fetch
// account resources and to publish snapshots into Workers KV.
package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/chittyos/registry-sync/internal/config"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
)

const defaultPageSize = 50

// Client is an authenticated Cloudflare API client.
type Client struct {
	baseURL    string
	email      string
	apiKey     string
	accountID  string
	pageSize   int
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a Cloudflare client from explicit configuration.
func NewClient(cfg config.CloudflareConfig, log *logger.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		email:      cfg.Email,
		apiKey:     cfg.APIKey,
		accountID:  cfg.AccountID,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// envelope is the common Cloudflare v4 response shape.
type envelope struct {
	Success    bool            `json:"success"`
	Errors     []apiError      `json:"errors"`
	Result     json.RawMessage `json:"result"`
	ResultInfo *resultInfo     `json:"result_info"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type resultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalCount int `json:"total_count"`
}

// do performs one request and decodes the envelope.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*envelope, error) {
	u := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Auth-Email", c.email)
	req.Header.Set("X-Auth-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %d - %s", resp.StatusCode, string(respBody))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("API request failed: %s", formatErrors(env.Errors))
	}

	return &env, nil
}

func formatErrors(errs []apiError) string {
	if len(errs) == 0 {
		return "unknown error"
	}
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%d: %s", e.Code, e.Message)
	}
	return out
}

// paginatedFetch requests fixed-size pages until the cumulative item count
// reaches the provider-reported total. A total of 0 and absent pagination
// metadata both terminate after the first page.
func (c *Client) paginatedFetch(ctx context.Context, endpoint string, params url.Values) ([]json.RawMessage, error) {
	var all []json.RawMessage

	for page := 1; ; page++ {
		query := url.Values{}
		for k, vs := range params {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(c.pageSize))

		env, err := c.do(ctx, http.MethodGet, endpoint, query, nil)
		if err != nil {
			return nil, err
		}

		var items []json.RawMessage
		if len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, &items); err != nil {
				return nil, fmt.Errorf("failed to parse result list: %w", err)
			}
		}
		all = append(all, items...)

		if env.ResultInfo == nil {
			break
		}
		if page*c.pageSize >= env.ResultInfo.TotalCount {
			break
		}
	}

	return all, nil
}

// getDetail performs a single-object detail call.
func (c *Client) getDetail(ctx context.Context, endpoint string) (json.RawMessage, error) {
	env, err := c.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	return env.Result, nil
}
