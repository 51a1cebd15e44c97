/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

//go:generate mockgen -source=dispatcher.go -destination=mock/interfaces.go -package=mock

// Doer sends HTTP requests, *http.Client being the obvious one.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ResponseValidator checks a response against an API description.
type ResponseValidator interface {
	ValidateResponse(ctx context.Context, req *http.Request, status int, header http.Header, body []byte) error
}

// Encoding is how request bodies are sent.
type Encoding string

const (
	// EncodingForm sends application/x-www-form-urlencoded bodies.
	EncodingForm Encoding = "form"

	// EncodingJSON sends application/json bodies.
	EncodingJSON Encoding = "json"
)

// ParseEncoding validates an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(s); e {
	case EncodingForm, EncodingJSON:
		return e, nil
	case "":
		return EncodingForm, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidEncoding, s)
}

// Request is a single logical request, possibly sent more than once.
type Request struct {
	Method string
	URL    string

	// Body is sent for POST and PUT, nil means no body.
	Body url.Values

	// ExpectError says a non-accepted status is fine and must not be retried.
	ExpectError bool
}

// RequestOption modifies a request before it is dispatched.
type RequestOption func(*Request)

// WithExpectedError marks a failure status as acceptable.
func WithExpectedError() RequestOption {
	return func(r *Request) {
		r.ExpectError = true
	}
}

// Options configures a Dispatcher.
type Options struct {
	// Logger receives request and response details at debug level.
	Logger logr.Logger

	// Retry is the stop/retry policy, unset fields take defaults.
	Retry RetryPolicy

	// Breaker enables a circuit breaker across requests when set.
	Breaker *BreakerSettings

	// Validator checks every final response when set.
	Validator ResponseValidator

	// Encoding of request bodies, defaults to form encoding.
	Encoding Encoding

	// AuthToken is sent as a bearer token when set.
	AuthToken string

	// LogRequests logs every attempt as it is sent.
	LogRequests bool

	// LogResponses adds raw and decoded bodies to the completion log.
	LogResponses bool
}

// Dispatcher sends requests and applies the retry policy.
type Dispatcher struct {
	doer         Doer
	logger       logr.Logger
	policy       RetryPolicy
	breaker      *gobreaker.CircuitBreaker
	validator    ResponseValidator
	encoding     Encoding
	authToken    string
	logRequests  bool
	logResponses bool
}

// NewDispatcher returns a dispatcher sending through the given transport.
func NewDispatcher(doer Doer, options Options) *Dispatcher {
	d := &Dispatcher{
		doer:         doer,
		logger:       options.Logger,
		policy:       options.Retry.withDefaults(),
		validator:    options.Validator,
		encoding:     options.Encoding,
		authToken:    options.AuthToken,
		logRequests:  options.LogRequests,
		logResponses: options.LogResponses,
	}

	if d.encoding == "" {
		d.encoding = EncodingForm
	}

	if options.Breaker != nil {
		d.breaker = newBreaker("users-api", *options.Breaker)
	}

	return d
}

// errNotAccepted tells the backoff loop to go round again.
var errNotAccepted = errors.New("status not accepted")

// Dispatch sends the request until the retry policy says stop and returns
// the last result.  A result may accompany an error, e.g. when retries are
// exhausted the last response is still returned.
//
//nolint:cyclop // the stop conditions are easier to read in one place
func (d *Dispatcher) Dispatch(ctx context.Context, r Request) (*Result, error) {
	if _, err := http.NewRequestWithContext(ctx, r.Method, r.URL, nil); err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	body, contentType, err := d.encode(r.Body)
	if err != nil {
		return nil, err
	}

	retry := !r.ExpectError && d.policy.Retries(r.Method)

	var (
		result   *Result
		attempts int
	)

	start := time.Now()

	operation := func() error {
		attempts++

		result = nil

		res, err := d.attempt(ctx, r, body, contentType, attempts)
		if err != nil {
			if !retry || errors.Is(err, ErrDecode) || errors.Is(err, ErrCircuitOpen) {
				return backoff.Permanent(err)
			}

			return err
		}

		result = res

		if retry && !d.policy.Accept(res.StatusCode) {
			return fmt.Errorf("%w: %d %s", errNotAccepted, res.StatusCode, res.Reason)
		}

		return nil
	}

	notify := func(err error, wait time.Duration) {
		d.logger.V(1).Info("retrying request", "method", r.Method, "url", r.URL, "attempt", attempts, "reason", err.Error(), "wait", wait)
	}

	err = backoff.RetryNotify(operation, d.policy.backOff(ctx, retry), notify)

	duration := time.Since(start)

	if result != nil {
		result.Attempts = attempts
		result.Duration = duration

		d.logResult(result)
	}

	if err != nil {
		return result, d.failure(ctx, r, result, attempts, retry, err)
	}

	if d.validator != nil {
		if err := d.validate(ctx, r, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

// failure turns a backoff error into something a caller can act on.
func (d *Dispatcher) failure(ctx context.Context, r Request, result *Result, attempts int, retry bool, err error) error {
	ctxErr := ctx.Err()

	if errors.Is(err, errNotAccepted) {
		err = fmt.Errorf("%w: %s %s after %d attempts, last status %d (trace ID: %s)", ErrRetriesExhausted, r.Method, r.URL, attempts, result.StatusCode, result.TraceID)

		if ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}

		d.logger.Error(err, "request failed", "method", r.Method, "url", r.URL, "status", result.StatusCode, "body", string(result.Body))

		return err
	}

	if ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(err, ctxErr)
	}

	if retry && attempts >= d.policy.MaxAttempts {
		err = fmt.Errorf("%w: %s %s after %d attempts: %w", ErrRetriesExhausted, r.Method, r.URL, attempts, err)
	}

	d.logger.Error(err, "request failed", "method", r.Method, "url", r.URL, "attempts", attempts)

	return err
}

func (d *Dispatcher) encode(values url.Values) ([]byte, string, error) {
	if values == nil {
		return nil, "", nil
	}

	if d.encoding == EncodingJSON {
		object := make(map[string]string, len(values))

		for key := range values {
			object[key] = values.Get(key)
		}

		data, err := json.Marshal(object)
		if err != nil {
			return nil, "", fmt.Errorf("marshaling request body: %w", err)
		}

		return data, "application/json", nil
	}

	return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
}

// attempt sends the request once.
func (d *Dispatcher) attempt(ctx context.Context, r Request, body []byte, contentType string, attempt int) (*Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Add W3C Trace Context headers
	traceParent := createTraceParent()
	traceID := extractTraceID(traceParent)

	req.Header.Set("Traceparent", traceParent)
	req.Header.Set("Tracestate", "test-automation=users-smoke")
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("Accept", "application/json")

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if d.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.authToken)
	}

	if d.logRequests {
		d.logger.V(1).Info("sending request", "method", r.Method, "url", r.URL, "attempt", attempt, "traceparent", traceParent)
	}

	start := time.Now()
	resp, err := d.do(req)
	duration := time.Since(start)

	if err != nil {
		d.logger.V(1).Info("http request failed", "method", r.Method, "url", r.URL, "duration", duration, "error", err.Error(), "traceID", traceID)
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	header := resp.Header
	if header == nil {
		header = http.Header{}
	}

	result := &Result{
		Method:     r.Method,
		URL:        finalURL.String(),
		StatusCode: resp.StatusCode,
		Reason:     reason(resp),
		Header:     header,
		Body:       respBody,
		TraceID:    traceID,
	}

	if err := result.decode(); err != nil {
		return nil, err
	}

	return result, nil
}

func (d *Dispatcher) logResult(result *Result) {
	values := []interface{}{
		"method", result.Method,
		"url", result.URL,
		"status", result.StatusCode,
		"reason", result.Reason,
		"attempts", result.Attempts,
		"duration", result.Duration,
		"traceID", result.TraceID,
	}

	if d.logResponses {
		values = append(values, "body", string(result.Body))

		if result.HasJSON {
			values = append(values, "json", result.JSON)
		}
	}

	d.logger.V(1).Info(result.Method+" request complete", values...)
}

func (d *Dispatcher) validate(ctx context.Context, r Request, result *Result) error {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, nil)
	if err != nil {
		return fmt.Errorf("creating validation request: %w", err)
	}

	if err := d.validator.ValidateResponse(ctx, req, result.StatusCode, result.Header, result.Body); err != nil {
		err = fmt.Errorf("%w: %s %s (trace ID: %s): %w", ErrContract, r.Method, r.URL, result.TraceID, err)
		d.logger.Error(err, "contract validation failed", "method", r.Method, "url", r.URL, "status", result.StatusCode)

		return err
	}

	return nil
}
