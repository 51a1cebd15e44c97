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
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures the optional circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32

	// Timeout is how long the breaker stays open before letting a probe through.
	Timeout time.Duration
}

// errServerStatus marks a 5xx response as a failure to the breaker while
// still handing the response back.
var errServerStatus = errors.New("server error status")

func newBreaker(name string, settings BreakerSettings) *gobreaker.CircuitBreaker {
	failures := settings.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
}

// do sends the request through the breaker when there is one.
func (d *Dispatcher) do(req *http.Request) (*http.Response, error) {
	if d.breaker == nil {
		return d.doer.Do(req)
	}

	out, err := d.breaker.Execute(func() (interface{}, error) {
		resp, err := d.doer.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}

		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrCircuitOpen, err)
	}

	if err != nil && !errors.Is(err, errServerStatus) {
		return nil, err
	}

	resp, _ := out.(*http.Response)

	return resp, nil
}
