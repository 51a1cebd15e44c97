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
)

var (
	// ErrRetriesExhausted is returned when a retryable request never got an
	// accepted status within the retry policy.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrDecode is returned when a response claims to be JSON but isn't.
	ErrDecode = errors.New("response decode failed")

	// ErrNotJSON is returned when a caller needs a JSON body and the
	// response didn't carry one.
	ErrNotJSON = errors.New("response is not JSON")

	// ErrContract is returned when a response doesn't match the API description.
	ErrContract = errors.New("response violates API contract")

	// ErrCircuitOpen is returned when the circuit breaker rejects a request.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrUnexpectedType is returned when decoded JSON has the wrong shape.
	ErrUnexpectedType = errors.New("unexpected response type")

	// ErrInvalidRetryPolicy is returned by policy validation.
	ErrInvalidRetryPolicy = errors.New("invalid retry policy")

	// ErrInvalidEncoding is returned for unknown body encodings.
	ErrInvalidEncoding = errors.New("invalid body encoding")
)
