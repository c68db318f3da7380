// Package upstream is the shared plumbing for the third-party HTTP APIs
// (weather and AI). Every client built on it reports failures the same way.
package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
)

var (
	ErrNotConfigured  = errors.New("not configured")
	ErrCircuitOpen    = errors.New("circuit breaker open")
	ErrInvalidPayload = errors.New("invalid upstream payload")
)

var validate = validator.New()

// ConfigError means a credential the call needs is missing.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string { return e.Setting + " not configured" }

func (e *ConfigError) Unwrap() error { return ErrNotConfigured }

// StatusError is a non-2xx response from an upstream API.
type StatusError struct {
	Service    string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d %s", e.Service, e.StatusCode, e.Status)
}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Caller sends requests to one upstream through a circuit breaker.
// Requests are never retried.
type Caller struct {
	service string
	client  Doer
	breaker *gobreaker.CircuitBreaker
}

func NewCaller(service string, client Doer) *Caller {
	if client == nil {
		client = http.DefaultClient
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Caller{service: service, client: client, breaker: cb}
}

func (c *Caller) Service() string { return c.service }

// Do sends req once. Transport errors and 5xx responses count against the
// breaker; any non-2xx response comes back as a *StatusError.
func (c *Caller) Do(req *http.Request) (*http.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s: request failed: %w", c.service, err)
		}
		if resp.StatusCode >= 500 {
			return nil, c.statusError(resp)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", c.service, ErrCircuitOpen)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type from circuit breaker", c.service)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp)
	}
	return resp, nil
}

// DoJSON sends req and decodes the 2xx body into out, then validates it
// against out's `validate` tags.
func (c *Caller) DoJSON(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", c.service, ErrInvalidPayload, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%s: %w: %v", c.service, ErrInvalidPayload, err)
	}
	return nil
}

func (c *Caller) statusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Service:    c.service,
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Body:       strings.TrimSpace(string(body)),
	}
}
