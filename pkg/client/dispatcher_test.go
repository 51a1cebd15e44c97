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

package client_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/unikorn-cloud/users-smoke/pkg/client"
	"github.com/unikorn-cloud/users-smoke/pkg/client/mock"
)

const (
	baseURL = "http://users.test"
)

var traceParentRegexp = regexp.MustCompile(`^00-[0-9a-f]{32}-[0-9a-f]{16}-01$`)

func fastRetry() client.RetryPolicy {
	return client.RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func response(status int, contentType, body string) *http.Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func jsonResponse(status int, body string) *http.Response {
	return response(status, "application/json; charset=utf-8", body)
}

func userValues() url.Values {
	return url.Values{
		"name":     []string{"Ada Lovelace"},
		"username": []string{"ada"},
		"email":    []string{"ada@example.com"},
	}
}

// TestDispatchURLAndBody ensures every method is sent to the exact URL with the exact body.
func TestDispatchURLAndBody(t *testing.T) {
	t.Parallel()

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			t.Parallel()

			c := gomock.NewController(t)
			defer c.Finish()

			doer := mock.NewMockDoer(c)

			var body url.Values
			if method == http.MethodPost || method == http.MethodPut {
				body = userValues()
			}

			target := baseURL + "/users/55"

			doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
				require.Equal(t, method, req.Method)
				require.Equal(t, target, req.URL.String())

				if body == nil {
					require.True(t, req.Body == nil || req.Body == http.NoBody)
					require.Empty(t, req.Header.Get("Content-Type"))
				} else {
					data, err := io.ReadAll(req.Body)
					require.NoError(t, err)
					require.Equal(t, body.Encode(), string(data))
					require.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
				}

				return jsonResponse(http.StatusOK, `{}`), nil
			})

			d := client.NewDispatcher(doer, client.Options{Retry: fastRetry()})

			result, err := d.Dispatch(t.Context(), client.Request{Method: method, URL: target, Body: body})
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, result.StatusCode)
			require.Equal(t, "OK", result.Reason)
			require.Equal(t, target, result.URL)
		})
	}
}

// TestRetryUntilAccepted ensures PUT and DELETE retry a failure and stop on success.
func TestRetryUntilAccepted(t *testing.T) {
	t.Parallel()

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			t.Parallel()

			c := gomock.NewController(t)
			defer c.Finish()

			doer := mock.NewMockDoer(c)

			gomock.InOrder(
				doer.EXPECT().Do(gomock.Any()).Return(jsonResponse(http.StatusInternalServerError, `{}`), nil),
				doer.EXPECT().Do(gomock.Any()).Return(jsonResponse(http.StatusOK, `{}`), nil),
			)

			d := client.NewDispatcher(doer, client.Options{Retry: fastRetry()})

			result, err := d.Dispatch(t.Context(), client.Request{Method: method, URL: baseURL + "/users/55", Body: userValues()})
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, result.StatusCode)
			require.Equal(t, 2, result.Attempts)
		})
	}
}

// TestSingleAttempt ensures GET and POST are sent once whatever the status.
func TestSingleAttempt(t *testing.T) {
	t.Parallel()

	statuses := []int{http.StatusOK, http.StatusCreated, http.StatusNotFound, http.StatusInternalServerError}

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		for _, status := range statuses {
			t.Run(fmt.Sprintf("%s %d", method, status), func(t *testing.T) {
				t.Parallel()

				c := gomock.NewController(t)
				defer c.Finish()

				doer := mock.NewMockDoer(c)
				doer.EXPECT().Do(gomock.Any()).Return(jsonResponse(status, `{}`), nil).Times(1)

				d := client.NewDispatcher(doer, client.Options{Retry: fastRetry()})

				result, err := d.Dispatch(t.Context(), client.Request{Method: method, URL: baseURL + "/users/"})
				require.NoError(t, err)
				require.Equal(t, status, result.StatusCode)
				require.Equal(t, 1, result.Attempts)
			})
		}
	}
}

// TestExpectedErrorStops ensures the expected error flag disables retries.
func TestExpectedErrorStops(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	doer := mock.NewMockDoer(c)
	doer.EXPECT().Do(gomock.Any()).Return(jsonResponse(http.StatusNotFound, `{}`), nil).Times(1)

	d := client.NewDispatcher(doer, client.Options{Retry: fastRetry()})

	result, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodDelete, URL: baseURL + "/users/999", ExpectError: true})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, result.StatusCode)
	require.Equal(t, 1, result.Attempts)
}

// TestRetriesExhausted ensures the retry loop is bounded and reports the last status.
func TestRetriesExhausted(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	doer := mock.NewMockDoer(c)
	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, `{}`), nil
	}).Times(3)

	d := client.NewDispatcher(doer, client.Options{Retry: fastRetry()})

	result, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodPut, URL: baseURL + "/users/55", Body: userValues()})
	require.ErrorIs(t, err, client.ErrRetriesExhausted)
	require.NotNil(t, result)
	require.Equal(t, http.StatusServiceUnavailable, result.StatusCode)
	require.Equal(t, 3, result.Attempts)
}

// TestTransportErrors ensures network failures surface at once for GET
// and are retried for PUT.
func TestTransportErrors(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("connection refused")

	t.Run("GET", func(t *testing.T) {
		t.Parallel()

		c := gomock.NewController(t)
		defer c.Finish()

		doer := mock.NewMockDoer(c)
		doer.EXPECT().Do(gomock.Any()).Return(nil, errBoom).Times(1)

		d := client.NewDispatcher(doer, client.Options{Retry: fastRetry()})

		result, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodGet, URL: baseURL + "/users/4"})
		require.ErrorIs(t, err, errBoom)
		require.NotErrorIs(t, err, client.ErrRetriesExhausted)
		require.Nil(t, result)
	})

	t.Run("PUT", func(t *testing.T) {
		t.Parallel()

		c := gomock.NewController(t)
		defer c.Finish()

		doer := mock.NewMockDoer(c)

		gomock.InOrder(
			doer.EXPECT().Do(gomock.Any()).Return(nil, errBoom),
			doer.EXPECT().Do(gomock.Any()).Return(jsonResponse(http.StatusOK, `{}`), nil),
		)

		d := client.NewDispatcher(doer, client.Options{Retry: fastRetry()})

		result, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodPut, URL: baseURL + "/users/55", Body: userValues()})
		require.NoError(t, err)
		require.Equal(t, 2, result.Attempts)
	})

	t.Run("PUT exhausted", func(t *testing.T) {
		t.Parallel()

		c := gomock.NewController(t)
		defer c.Finish()

		doer := mock.NewMockDoer(c)
		doer.EXPECT().Do(gomock.Any()).Return(nil, errBoom).Times(3)

		d := client.NewDispatcher(doer, client.Options{Retry: fastRetry()})

		_, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodPut, URL: baseURL + "/users/55", Body: userValues()})
		require.ErrorIs(t, err, errBoom)
		require.ErrorIs(t, err, client.ErrRetriesExhausted)
	})
}

// TestCancelledContext ensures a cancelled context stops the retry loop.
func TestCancelledContext(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	ctx, cancel := context.WithCancel(t.Context())

	doer := mock.NewMockDoer(c)
	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(*http.Request) (*http.Response, error) {
		cancel()

		return jsonResponse(http.StatusInternalServerError, `{}`), nil
	}).Times(1)

	d := client.NewDispatcher(doer, client.Options{
		Retry: client.RetryPolicy{
			MaxAttempts:     10,
			InitialInterval: time.Second,
			MaxInterval:     time.Second,
		},
	})

	_, err := d.Dispatch(ctx, client.Request{Method: http.MethodDelete, URL: baseURL + "/users/1"})
	require.ErrorIs(t, err, context.Canceled)
}

// TestConditionalDecode ensures bodies are only decoded when they claim to be JSON.
func TestConditionalDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		hasJSON     bool
		err         error
	}{
		{name: "object", contentType: "application/json", body: `{"id":4}`, hasJSON: true},
		{name: "suffix", contentType: "application/problem+json", body: `{"title":"nope"}`, hasJSON: true},
		{name: "html", contentType: "text/html", body: `<html></html>`},
		{name: "no content type", body: `not json`},
		{name: "empty", contentType: "application/json"},
		{name: "malformed", contentType: "application/json", body: `{"id":`, err: client.ErrDecode},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			c := gomock.NewController(t)
			defer c.Finish()

			doer := mock.NewMockDoer(c)
			doer.EXPECT().Do(gomock.Any()).Return(response(http.StatusOK, test.contentType, test.body), nil)

			d := client.NewDispatcher(doer, client.Options{})

			result, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodGet, URL: baseURL + "/users/4"})
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, test.hasJSON, result.HasJSON)
			require.Equal(t, test.body, string(result.Body))
		})
	}
}

// TestJSONEncoding ensures bodies can be sent as JSON.
func TestJSONEncoding(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	doer := mock.NewMockDoer(c)
	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		require.Equal(t, "application/json", req.Header.Get("Content-Type"))

		data, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"name":"Ada Lovelace","username":"ada","email":"ada@example.com"}`, string(data))

		return jsonResponse(http.StatusCreated, `{"id":1}`), nil
	})

	d := client.NewDispatcher(doer, client.Options{Encoding: client.EncodingJSON})

	result, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodPost, URL: baseURL + "/users/", Body: userValues()})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, result.StatusCode)
}

// TestHeaders ensures trace context, request ID and auth are sent.
func TestHeaders(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	doer := mock.NewMockDoer(c)
	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		require.Regexp(t, traceParentRegexp, req.Header.Get("Traceparent"))
		require.Equal(t, "Bearer secret", req.Header.Get("Authorization"))

		_, err := uuid.Parse(req.Header.Get("X-Request-Id"))
		require.NoError(t, err)

		return jsonResponse(http.StatusOK, `[]`), nil
	})

	d := client.NewDispatcher(doer, client.Options{AuthToken: "secret"})

	result, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodGet, URL: baseURL + "/users/"})
	require.NoError(t, err)
	require.Len(t, result.TraceID, 32)
}

// TestCircuitBreaker ensures repeated server errors open the breaker and
// later requests fail fast without reaching the transport.
func TestCircuitBreaker(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	doer := mock.NewMockDoer(c)
	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `{}`), nil
	}).Times(2)

	d := client.NewDispatcher(doer, client.Options{
		Breaker: &client.BreakerSettings{
			ConsecutiveFailures: 2,
			Timeout:             time.Minute,
		},
	})

	for range 2 {
		result, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodGet, URL: baseURL + "/users/"})
		require.NoError(t, err)
		require.Equal(t, http.StatusInternalServerError, result.StatusCode)
	}

	_, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodGet, URL: baseURL + "/users/"})
	require.ErrorIs(t, err, client.ErrCircuitOpen)
}

// TestValidator ensures final responses are checked against the contract.
func TestValidator(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	doer := mock.NewMockDoer(c)
	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"id":4}`), nil
	}).Times(2)

	validator := mock.NewMockResponseValidator(c)

	gomock.InOrder(
		validator.EXPECT().ValidateResponse(gomock.Any(), gomock.Any(), http.StatusOK, gomock.Any(), []byte(`{"id":4}`)).Return(nil),
		validator.EXPECT().ValidateResponse(gomock.Any(), gomock.Any(), http.StatusOK, gomock.Any(), gomock.Any()).Return(errors.New("name is required")),
	)

	d := client.NewDispatcher(doer, client.Options{Validator: validator})

	_, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodGet, URL: baseURL + "/users/4"})
	require.NoError(t, err)

	result, err := d.Dispatch(t.Context(), client.Request{Method: http.MethodGet, URL: baseURL + "/users/4"})
	require.ErrorIs(t, err, client.ErrContract)
	require.NotNil(t, result)
}

// TestRetryPolicyValidate ensures bad policies are rejected.
func TestRetryPolicyValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, client.DefaultRetryPolicy().Validate())

	policy := client.DefaultRetryPolicy()
	policy.MaxAttempts = 0
	require.ErrorIs(t, policy.Validate(), client.ErrInvalidRetryPolicy)

	policy = client.DefaultRetryPolicy()
	policy.InitialInterval = 0
	require.ErrorIs(t, policy.Validate(), client.ErrInvalidRetryPolicy)

	policy = client.DefaultRetryPolicy()
	policy.MaxInterval = policy.InitialInterval / 2
	require.ErrorIs(t, policy.Validate(), client.ErrInvalidRetryPolicy)

	require.True(t, policy.Retries(http.MethodPut))
	require.True(t, policy.Retries(http.MethodDelete))
	require.False(t, policy.Retries(http.MethodGet))
	require.False(t, policy.Retries(http.MethodPost))
}

// TestParseEncoding ensures only known encodings are accepted.
func TestParseEncoding(t *testing.T) {
	t.Parallel()

	e, err := client.ParseEncoding("")
	require.NoError(t, err)
	require.Equal(t, client.EncodingForm, e)

	e, err = client.ParseEncoding("json")
	require.NoError(t, err)
	require.Equal(t, client.EncodingJSON, e)

	_, err = client.ParseEncoding("xml")
	require.ErrorIs(t, err, client.ErrInvalidEncoding)
}
