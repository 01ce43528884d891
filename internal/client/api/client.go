// Package api is the HTTP gateway to the authentication backend. It owns
// request shaping (JSON bodies, Accept headers, bearer attachment) and
// response normalization (envelope decoding, the error taxonomy). Nothing
// above this package talks HTTP or inspects raw payload shapes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/mbelkin/authfront/internal/client/token"
	"github.com/mbelkin/authfront/internal/common"
	"github.com/mbelkin/authfront/internal/logging"
)

// Config assembles a Client. BaseURL is mandatory for any call to succeed;
// Tokens may be nil when the transport's cookie jar is the only credential
// carrier. OnUnauthorized, when set, runs after a 401 has cleared the token
// store, so the shell can route the user back to the login entry point.
type Config struct {
	BaseURL        string
	Tokens         token.Store
	HTTPClient     *http.Client
	Logger         logging.Logger
	OnUnauthorized func()
}

type Client struct {
	baseURL        string
	http           *http.Client
	tokens         token.Store
	log            logging.Logger
	onUnauthorized func()
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// The jar carries the server-issued HTTP-only session cookie on
		// requests that go out without a bearer header.
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{Jar: jar, Timeout: 30 * time.Second}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           httpClient,
		tokens:         cfg.Tokens,
		log:            log,
		onUnauthorized: cfg.OnUnauthorized,
	}
}

// SetOnUnauthorized installs the 401 hook after construction. Call before
// issuing requests.
func (c *Client) SetOnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

type requestOptions struct {
	token    string
	hasToken bool
}

type RequestOption func(*requestOptions)

// WithToken sends the given credential instead of whatever the store
// holds. Used by flows that received a token in-band (OAuth callback)
// before deciding to persist it.
func WithToken(t string) RequestOption {
	return func(o *requestOptions) {
		o.token = t
		o.hasToken = true
	}
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) (*Envelope, error) {
	return c.do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) (*Envelope, error) {
	return c.do(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) (*Envelope, error) {
	return c.do(ctx, http.MethodPut, path, body, out, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) (*Envelope, error) {
	return c.do(ctx, http.MethodPatch, path, body, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) (*Envelope, error) {
	return c.do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// do performs one round-trip and normalizes the outcome. On success the
// envelope's data is decoded into out (when out is non-nil); every failure
// comes back as *Error per the package taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) (*Envelope, error) {
	if c.baseURL == "" {
		return nil, ErrNoBaseURL
	}

	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if t, ok := c.resolveToken(o); ok {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+t)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "request transport failure", "method", method, "path", path, "error", err)
		return nil, &Error{
			Message: "server is unreachable, please try again",
			Status:  StatusNetwork,
			cause:   err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "response could not be read", Status: StatusNetwork, cause: err}
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Fall back to an empty envelope; status classification below
		// still applies.
		env = Envelope{}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// The stored credential is no longer valid anywhere in the system.
		if c.tokens != nil {
			_ = c.tokens.Delete()
		}
		c.log.Info(ctx, "credential rejected, cleared token store", "path", path)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.newStatusError(resp.StatusCode, &env)
	}

	if out != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return nil, &Error{
				Message: "server returned an unexpected response",
				Status:  resp.StatusCode,
			}
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, &Error{
				Message: "server returned an unexpected response",
				Status:  resp.StatusCode,
				cause:   err,
			}
		}
	}
	return &env, nil
}

func (c *Client) resolveToken(o requestOptions) (string, bool) {
	if o.hasToken {
		return o.token, o.token != ""
	}
	if c.tokens == nil {
		return "", false
	}
	t, ok := c.tokens.Get()
	return t, ok && t != ""
}

func (c *Client) newStatusError(httpStatus int, env *Envelope) *Error {
	status := env.Status
	if status == 0 {
		status = httpStatus
	}
	message := env.Message
	if message == "" {
		switch httpStatus {
		case http.StatusUnauthorized:
			message = "your session has expired, please log in again"
		case http.StatusTooManyRequests:
			message = "too many attempts, please wait before retrying"
		default:
			message = "something went wrong, please try again"
		}
	}
	return &Error{
		Message: message,
		Status:  status,
		Fields:  normalizeFieldErrors(env.Errors),
	}
}
