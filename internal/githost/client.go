// Package githost implements the content-host contract over the GitHub
// contents API: fetch, create, and update a repository file by path,
// with the blob SHA acting as the version token for conditional writes.
package githost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/matsen/ccslog/internal/vstore"
)

const (
	// DefaultBaseURL is the GitHub REST API base URL.
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit keeps write traffic well under GitHub's secondary limits.
	RateLimit = 5.0
)

// Errors. Not-found and version-conflict conditions surface as the
// vstore contract sentinels so the store can react without knowing the
// hosting technology.
var (
	ErrInvalidRepo  = errors.New("invalid repository format (want owner/repo)")
	ErrRateLimited  = errors.New("GitHub API rate limit exceeded")
	ErrUnauthorized = errors.New("GitHub API authentication failed")
	ErrAPIError     = errors.New("GitHub API error")
	ErrNetworkError = errors.New("network error connecting to GitHub")
)

var repoPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+$`)

// Client talks to the contents API of a single repository.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	baseURL    string
	repo       string // owner/repo
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the personal access token for authenticated requests.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// NewClient creates a contents-API client for the given owner/repo.
// It reads GITHUB_TOKEN from the environment unless WithToken overrides it.
func NewClient(repo string, opts ...Option) (*Client, error) {
	if !repoPattern.MatchString(repo) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		token:      os.Getenv("GITHUB_TOKEN"),
		baseURL:    DefaultBaseURL,
		repo:       repo,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// contentsResponse is the subset of the contents API payload we consume.
type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

// writeRequest is the body of a contents API PUT.
type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content"` // base64
	SHA     string `json:"sha,omitempty"`
}

// writeResponse wraps the file metadata returned by a PUT.
type writeResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// Fetch retrieves the file at path, returning its text content and the
// blob SHA that serves as the version token. A missing file returns
// ErrNotFound.
func (c *Client) Fetch(ctx context.Context, path string) (content, token string, err error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", "", err
	}

	var cr contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", "", fmt.Errorf("%w: decoding response: %v", ErrAPIError, err)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(cr.Content, "\n", ""))
	if err != nil {
		return "", "", fmt.Errorf("%w: decoding content: %v", ErrAPIError, err)
	}
	return string(decoded), cr.SHA, nil
}

// Create writes a new file at path and returns its version token.
// If the file already exists the host reports ErrVersionConflict.
func (c *Client) Create(ctx context.Context, path, content string) (string, error) {
	return c.put(ctx, path, writeRequest{
		Message: commitMessage("Create collision cross section data file"),
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
	})
}

// Update rewrites the file at path conditioned on expectedToken still
// being the current blob SHA. A stale token yields ErrVersionConflict.
func (c *Client) Update(ctx context.Context, path, content, expectedToken string) (string, error) {
	return c.put(ctx, path, writeRequest{
		Message: commitMessage("Update collision cross section data"),
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		SHA:     expectedToken,
	})
}

func (c *Client) put(ctx context.Context, path string, body writeRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", ErrAPIError, err)
	}

	resp, err := c.do(ctx, http.MethodPut, path, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var wr writeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrAPIError, err)
	}
	return wr.Content.SHA, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}

	url := fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, c.repo, strings.TrimLeft(path, "/"))

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "ccslog-cli")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusNotFound:
		return vstore.ErrNotFound
	case http.StatusConflict:
		return vstore.ErrVersionConflict
	case http.StatusUnprocessableEntity:
		// The contents API answers 422 both for a stale SHA and for a
		// create against an existing path; either way the caller must
		// re-fetch and retry.
		return vstore.ErrVersionConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return ErrRateLimited
		}
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}
}

func commitMessage(prefix string) string {
	return fmt.Sprintf("%s - %s", prefix, time.Now().Format("2006-01-02 15:04:05"))
}
