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

package openapi

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed users.yaml
var spec []byte

// Spec returns the raw users API description.
func Spec() []byte {
	return spec
}

// Load parses and validates the users API description.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("loading users api description: %w", err)
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validating users api description: %w", err)
	}

	return doc, nil
}

// Validator checks responses against the users API description.
type Validator struct {
	router   routers.Router
	basePath string
}

// NewValidator returns a validator.  basePath is stripped from request
// paths, for when the API is served under a prefix.
func NewValidator(ctx context.Context, basePath string) (*Validator, error) {
	doc, err := Load(ctx)
	if err != nil {
		return nil, err
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	v := &Validator{
		router:   router,
		basePath: strings.TrimSuffix(basePath, "/"),
	}

	return v, nil
}

// routePath maps a request path onto the described paths, collection
// requests are sent with a trailing slash.
func (v *Validator) routePath(path string) string {
	path = strings.TrimPrefix(path, v.basePath)

	return "/" + strings.Trim(path, "/")
}

// ValidateResponse checks the status, content type and body of a response.
func (v *Validator) ValidateResponse(ctx context.Context, req *http.Request, status int, header http.Header, body []byte) error {
	r := req.Clone(ctx)
	r.URL = &url.URL{
		Path: v.routePath(req.URL.Path),
	}

	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		return fmt.Errorf("finding route for %s %s: %w", req.Method, req.URL.Path, err)
	}

	options := &openapi3filter.Options{
		IncludeResponseStatus: true,
		MultiError:            true,
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		},
		Status:  status,
		Header:  header,
		Body:    io.NopCloser(bytes.NewReader(body)),
		Options: options,
	}

	if err := openapi3filter.ValidateResponse(ctx, input); err != nil {
		return fmt.Errorf("validating %s %s response: %w", req.Method, req.URL.Path, err)
	}

	return nil
}
