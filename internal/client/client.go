// ABOUTME: HTTP client for the Invayl tutor backend API
// ABOUTME: Manages the Authorization header and wraps every endpoint with error handling

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// DefaultTokenType is used when a credential carries no explicit type.
const DefaultTokenType = "Bearer"

// Credentials is a token plus its scheme, rendered as "{TokenType} {Token}".
type Credentials struct {
	Token     string
	TokenType string
}

// Header renders the Authorization header value.
func (c Credentials) Header() string {
	tokenType := c.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	return tokenType + " " + c.Token
}

// CredentialSource supplies saved credentials when no default header is set.
// It is a backstop for a lost in-memory header and never overrides one.
type CredentialSource interface {
	Credentials() (Credentials, bool)
}

// Client is the API client for the tutor backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	source     CredentialSource

	mu         sync.RWMutex
	authHeader string
}

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	source     CredentialSource
	dial       func(ctx context.Context, network, address string) (net.Conn, error)
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient replaces the underlying http.Client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithCredentialSource installs the saved-token backstop.
func WithCredentialSource(src CredentialSource) Option {
	return func(o *options) { o.source = src }
}

// WithDialContext overrides how TCP connections are opened (see SOCKS5DialContext).
func WithDialContext(dial func(ctx context.Context, network, address string) (net.Conn, error)) Option {
	return func(o *options) { o.dial = dial }
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	o := &options{timeout: 60 * time.Second}
	for _, opt := range opts {
		opt(o)
	}

	hc := o.httpClient
	if hc == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if o.dial != nil {
			transport.DialContext = o.dial
		}
		// The jar mirrors the browser's "include credentials" behaviour.
		jar, _ := cookiejar.New(nil)
		hc = &http.Client{
			Timeout:   o.timeout,
			Transport: &loggingTransport{next: transport},
			Jar:       jar,
		}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: hc,
		source:     o.source,
	}
}

// BaseURL returns the configured backend URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAuthHeader sets the default Authorization header for all subsequent requests
func (c *Client) SetAuthHeader(token, tokenType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authHeader = Credentials{Token: token, TokenType: tokenType}.Header()
}

// ClearAuthHeader removes the default Authorization header
func (c *Client) ClearAuthHeader() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authHeader = ""
}

// AuthHeader returns the current default Authorization header, if any
func (c *Client) AuthHeader() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authHeader
}

type authorizationKey struct{}

// WithAuthorization attaches an explicit Authorization header value to every
// request made with ctx. It takes precedence over the client default.
func WithAuthorization(ctx context.Context, value string) context.Context {
	return context.WithValue(ctx, authorizationKey{}, value)
}

// authorize applies, in order: explicit per-request header, client default,
// saved credentials.
func (c *Client) authorize(req *http.Request) {
	if v, ok := req.Context().Value(authorizationKey{}).(string); ok && v != "" {
		req.Header.Set("Authorization", v)
		return
	}
	if h := c.AuthHeader(); h != "" {
		req.Header.Set("Authorization", h)
		return
	}
	if c.source == nil {
		return
	}
	if creds, ok := c.source.Credentials(); ok && creds.Token != "" {
		req.Header.Set("Authorization", creds.Header())
	}
}

// Login calls POST /auth/login
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, &LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register calls POST /auth/register. Only the status is consumed.
func (c *Client) Register(ctx context.Context, input *RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil, input, nil)
}

// Me calls GET /auth/me
func (c *Client) Me(ctx context.Context) (*UserResponse, error) {
	var user UserResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SendChat calls POST /chat
func (c *Client) SendChat(ctx context.Context, input *ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", nil, input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History calls GET /chat/history
func (c *Client) History(ctx context.Context, sessionID string, limit int) (*HistoryResponse, error) {
	q := url.Values{}
	q.Set("session_id", sessionID)
	q.Set("limit", strconv.Itoa(limit))

	var resp HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/chat/history", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AllMessages calls GET /chat/all
func (c *Client) AllMessages(ctx context.Context, limit, offset int, owner string) (*AllMessagesResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("owner", owner)

	var resp AllMessagesResponse
	if err := c.do(ctx, http.MethodGet, "/chat/all", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends one JSON request and decodes the JSON response into out (if non-nil)
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled")
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("request timed out")
	}
	return fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
}

// handleErrorResponse parses API error responses into an *APIError
func (c *Client) handleErrorResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return apiErr
	}
	apiErr.Detail = detailText(body.Detail)
	apiErr.Message = body.Message
	if apiErr.Message == "" {
		apiErr.Message = body.Error
	}
	return apiErr
}
