// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package formplayer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the service root, e.g. "https://example.org/formplayer".
	BaseURL string
	// Tokens maps actions to URL path tokens.
	Tokens Tokens
	// HTTP overrides the underlying client. Timeout is ignored when set.
	HTTP    Doer
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests when positive.
	RequestsPerSecond float64
	// AuthToken returns a bearer token, or "" to send none.
	AuthToken func() string
	UserAgent string
	Log       zerolog.Logger
}

// Client posts requests to the service. It is safe for concurrent use.
type Client struct {
	baseURL   string
	tokens    Tokens
	http      Doer
	limiter   *rate.Limiter
	authToken func() string
	userAgent string
	log       zerolog.Logger
}

// NewClient creates a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("formplayer base URL is empty")
	}
	if len(opts.Tokens) == 0 {
		return nil, errors.New("formplayer action tokens are empty")
	}
	doer := opts.HTTP
	if doer == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}
	c := &Client{
		baseURL:   base,
		tokens:    opts.Tokens,
		http:      doer,
		authToken: opts.AuthToken,
		userAgent: opts.UserAgent,
		log:       opts.Log,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// URL returns the endpoint for action.
func (c *Client) URL(action Action) string {
	return c.baseURL + "/" + c.tokens.Token(action)
}

// Send posts one request and decodes the reply. Non-2xx statuses return
// *HTTPError; transport failures are returned unwrapped so callers can
// classify them.
func (c *Client) Send(ctx context.Context, action Action, ectx Context, params Params) (*Response, error) {
	token := c.tokens.Token(action)
	if token == "" {
		return nil, fmt.Errorf("no token for action %s", action)
	}
	envelope, err := BuildEnvelope(token, ectx, params)
	if err != nil {
		return nil, fmt.Errorf("build %s envelope: %w", action, err)
	}
	media, err := mediaFrom(params)
	if err != nil {
		return nil, err
	}
	if action == ActionAnswerMedia && media == nil {
		return nil, ErrMissingMedia
	}

	body := io.Reader(bytes.NewReader(envelope))
	contentType := "application/json"
	if media != nil {
		buf, ct, err := multipartBody(envelope, media)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+token, body)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.authToken != nil {
		if t := c.authToken(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("action", action.String()).Str("request_id", requestID).Msg("request failed")
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Str("action", action.String()).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: raw}
	}
	out, err := ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return out, nil
}

func multipartBody(envelope []byte, m *Media) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="answer"; filename="blob"`)
	h.Set("Content-Type", "application/json")
	pw, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := pw.Write(envelope); err != nil {
		return nil, "", err
	}

	name := m.Filename
	if name == "" {
		name = "file"
	}
	fw, err := mw.CreateFormFile(FileParam, name)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(m.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// HTTPError is a non-2xx reply.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	if msg := e.ServerMessage(); msg != "" {
		return fmt.Sprintf("formplayer returned %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("formplayer returned %d", e.Status)
}

// ServerMessage extracts a human-readable message from a structured error
// body, or returns "".
func (e *HTTPError) ServerMessage() string {
	if !gjson.ValidBytes(e.Body) {
		return ""
	}
	root := gjson.ParseBytes(e.Body)
	for _, p := range []string{"exception", "message", "error.message", "error", "reason"} {
		if v := root.Get(p); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return strings.TrimSpace(v.Str)
		}
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, if any.
func StatusOf(err error) (int, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status, true
	}
	return 0, false
}
