// Package api is the HTTP client of the library REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Astemirdum/library-portal/pkg/auth"
	"github.com/Astemirdum/library-portal/pkg/circuit_breaker"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Guard is told about every request the API rejected as unauthenticated.
type Guard interface {
	Reject(ctx context.Context)
}

type Client struct {
	log     *zap.Logger
	client  *http.Client
	baseURL string
	cb      circuit_breaker.CircuitBreaker
	guard   Guard
}

func NewClient(log *zap.Logger, cfg config.API, guard Guard) *Client {
	return &Client{
		log:     log.Named("api"),
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cb:      circuit_breaker.New(cfg.Breaker),
		guard:   guard,
	}
}

func (c *Client) CB() circuit_breaker.CircuitBreaker {
	return c.cb
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

// do sends one request and decodes the JSON answer into out.
// Only transport failures and 5xx answers count against the circuit breaker.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var (
		status int
		data   []byte
	)
	start := time.Now()
	err := c.cb.Call(func() error {
		var err error
		status, data, err = c.roundTrip(ctx, method, path, body)
		if err != nil {
			return err
		}
		if status >= http.StatusInternalServerError {
			return errs.NewAPIError(status, "")
		}
		return nil
	})
	metrics.ObserveAPI(method, status, time.Since(start))
	if status == 0 {
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return errors.Wrapf(err, "%s %s", method, path)
	}
	c.log.Debug("request", zap.String("method", method), zap.String("path", path), zap.Int("status", status))

	if status == http.StatusUnauthorized {
		if c.guard != nil {
			c.guard.Reject(ctx)
		}
		return errs.NewAPIError(status, message(data))
	}
	if status < 200 || status >= 300 {
		return errs.NewAPIError(status, message(data))
	}
	return decode(data, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if token := auth.Token(ctx); token != "" {
		req.Header.Set(auth.AuthorizationHeader, auth.Bearer+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "read response")
	}
	return resp.StatusCode, data, nil
}

// message extracts the "message" of an error body, empty when there is none.
func message(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// decode rejects any non-empty body that is not JSON, even when there is nothing to
// decode it into.
func decode(data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if !json.Valid(data) {
		return errors.Wrap(errs.ErrDecode, "response body is not JSON")
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(errs.ErrDecode, err.Error())
	}
	return nil
}
