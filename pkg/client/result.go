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
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Result is the normalized outcome of a dispatched request.
type Result struct {
	// Method is the HTTP method sent.
	Method string

	// URL is the final URL, after any redirects.
	URL string

	// StatusCode and Reason describe the last attempt.
	StatusCode int
	Reason     string

	// Header and Body are the raw response.
	Header http.Header
	Body   []byte

	// JSON is the decoded body, only set when HasJSON is true.
	JSON    any
	HasJSON bool

	// Attempts is how many times the request was sent.
	Attempts int

	// Duration covers every attempt including backoff.
	Duration time.Duration

	// TraceID identifies the last attempt in server logs.
	TraceID string
}

// Object returns the JSON body as an object.
func (r *Result) Object() (map[string]interface{}, error) {
	if !r.HasJSON {
		return nil, fmt.Errorf("%w: %s %s", ErrNotJSON, r.Method, r.URL)
	}

	object, ok := r.JSON.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrUnexpectedType, r.JSON)
	}

	return object, nil
}

// Objects returns the JSON body as a list of objects.
func (r *Result) Objects() ([]map[string]interface{}, error) {
	if !r.HasJSON {
		return nil, fmt.Errorf("%w: %s %s", ErrNotJSON, r.Method, r.URL)
	}

	list, ok := r.JSON.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %T", ErrUnexpectedType, r.JSON)
	}

	objects := make([]map[string]interface{}, len(list))

	for i, item := range list {
		object, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: expected object at index %d, got %T", ErrUnexpectedType, i, item)
		}

		objects[i] = object
	}

	return objects, nil
}

// isJSON reports whether the content type is JSON or a +json suffix type.
func isJSON(header http.Header) bool {
	mediaType, _, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		return false
	}

	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// decode sets the JSON body when the content type says there is one.
func (r *Result) decode() error {
	if !isJSON(r.Header) || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}

	var value any
	if err := json.Unmarshal(r.Body, &value); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrDecode, r.Method, r.URL, err)
	}

	r.JSON = value
	r.HasJSON = true

	return nil
}

// reason returns the reason phrase of a response.
func reason(resp *http.Response) string {
	if text, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok && text != "" {
		return text
	}

	return http.StatusText(resp.StatusCode)
}
