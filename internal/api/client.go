// Package api is the client for the remote energia API. The API owns the
// records and the real validation; this package only moves JSON.
package api

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
	"time"
)

var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx answer from the remote API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("api: %d %s", e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

type tokenKey struct{}

// WithToken makes every request issued with ctx carry the bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

type Client struct {
	baseURL string
	http    *http.Client
	// stream serves file downloads. Its body is read after the handler
	// returns, so only the wait for response headers is bounded.
	stream *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080/api"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		stream:  &http.Client{Transport: transport},
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any, params url.Values) error {
	u := c.baseURL + path
	if params != nil {
		if q := params.Encode(); q != "" {
			u += "?" + q
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// sendJSON issues method with in as JSON body; out may be nil.
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.sendJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.send(c.http, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// send executes req and turns non-2xx answers into *StatusError. The caller
// owns the body of a successful response.
func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if tok := tokenFrom(req.Context()); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	return resp, nil
}

// readMessage extracts a short error text. The API answers with either a
// plain string ("Matriz não encontrada") or a Spring error object.
func readMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ""
	}
	var obj struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(b, &obj) == nil {
		for _, s := range []string{obj.Detail, obj.Message, obj.Error} {
			if s != "" {
				return s
			}
		}
	}
	return string(b)
}

func idPath(base string, id int64, suffix ...string) string {
	p := fmt.Sprintf("%s/%d", base, id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func query(q string) url.Values {
	return url.Values{"q": []string{q}}
}
