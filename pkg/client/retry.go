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
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxAttempts     = 5
	defaultInitialInterval = 100 * time.Millisecond
	defaultMaxInterval     = 2 * time.Second
)

// RetryPolicy decides which requests are retried, and for how long.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of attempts, including the first.
	MaxAttempts int

	// InitialInterval is the first backoff delay, doubling up to MaxInterval.
	InitialInterval time.Duration

	// MaxInterval caps a single backoff delay.
	MaxInterval time.Duration

	// Methods are the HTTP methods that are retried until accepted.
	// Anything else gets a single attempt.
	Methods []string

	// Accept reports whether a status ends the retry loop.  Defaults to 2xx.
	Accept func(status int) bool
}

// DefaultRetryMethods are retried by default, everything else is sent once.
func DefaultRetryMethods() []string {
	return []string{http.MethodPut, http.MethodDelete}
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     defaultMaxAttempts,
		InitialInterval: defaultInitialInterval,
		MaxInterval:     defaultMaxInterval,
		Methods:         DefaultRetryMethods(),
	}
}

// Validate checks the policy is usable.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidRetryPolicy, p.MaxAttempts)
	}

	if p.InitialInterval <= 0 {
		return fmt.Errorf("%w: initial interval must be positive, got %s", ErrInvalidRetryPolicy, p.InitialInterval)
	}

	if p.MaxInterval < p.InitialInterval {
		return fmt.Errorf("%w: max interval %s is less than initial interval %s", ErrInvalidRetryPolicy, p.MaxInterval, p.InitialInterval)
	}

	return nil
}

// withDefaults fills in anything left unset.
func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaultMaxAttempts
	}

	if p.InitialInterval == 0 {
		p.InitialInterval = defaultInitialInterval
	}

	if p.MaxInterval == 0 {
		p.MaxInterval = max(defaultMaxInterval, p.InitialInterval)
	}

	if p.Methods == nil {
		p.Methods = DefaultRetryMethods()
	}

	if p.Accept == nil {
		p.Accept = successful
	}

	return p
}

func successful(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// Retries reports whether requests with the method are retried.
func (p RetryPolicy) Retries(method string) bool {
	return slices.Contains(p.Methods, method)
}

// backOff returns the schedule for one request.  Requests that aren't
// retried get a schedule that stops after the first attempt.
func (p RetryPolicy) backOff(ctx context.Context, retry bool) backoff.BackOff {
	if !retry || p.MaxAttempts == 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}

	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = p.InitialInterval
	exponential.MaxInterval = p.MaxInterval
	exponential.MaxElapsedTime = 0
	exponential.Reset()

	//nolint:gosec // MaxAttempts is validated positive
	return backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(p.MaxAttempts-1)), ctx)
}
