// Package upstream holds HTTP clients for the collaborator services the
// orchestrator depends on.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/minutmaidman/shopcore/internal/domain"
)

const maxErrorBodySize = 1 << 20

// StatusError is a non-2xx response from a collaborator, carrying the
// decoded error body when one was present.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream status %d", e.Status)
}

type client struct {
	base    string
	http    *http.Client
	logger  *zap.Logger
	retries uint64
}

func newClient(baseURL string, timeout time.Duration, retries uint, logger *zap.Logger) client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		retries: uint64(retries),
	}
}

// doJSON issues one JSON request with bounded retries. Timeouts, connection
// errors and 5xx responses retry with exponential backoff; 4xx responses
// return immediately. Exhausted retries surface as ErrUpstreamUnavailable.
func (c client) doJSON(ctx context.Context, method, path string, reqBody, out any) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if isTimeout(err) {
				return domain.ErrUpstreamTimeout
			}
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if err != nil {
			return err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return statusError(resp.StatusCode, body)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return backoff.Permanent(statusError(resp.StatusCode, body))
		}
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.retries), ctx)
	err := backoff.Retry(func() error {
		if err := op(); err != nil {
			var perm *backoff.PermanentError
			if !errors.As(err, &perm) {
				c.logger.Warn("upstream call failed, retrying",
					zap.String("method", method),
					zap.String("path", path),
					zap.Error(err),
				)
			}
			return err
		}
		return nil
	}, bo)
	if err == nil {
		return nil
	}

	var se *StatusError
	if errors.As(err, &se) && se.Status < http.StatusInternalServerError {
		return se
	}
	if isTransient(err) {
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrUpstreamUnavailable)
	}
	return err
}

func statusError(status int, body []byte) *StatusError {
	se := &StatusError{Status: status}
	var decoded struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(body, &decoded) == nil {
		se.Code = decoded.Code
		se.Message = decoded.Error
	}
	return se
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return bo
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func isTransient(err error) bool {
	if errors.Is(err, domain.ErrUpstreamTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= http.StatusInternalServerError
	}
	var perm *backoff.PermanentError
	return !errors.As(err, &perm)
}
