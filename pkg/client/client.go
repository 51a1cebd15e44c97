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
	"net/url"
	"strings"

	"github.com/go-logr/logr"

	"github.com/unikorn-cloud/users-smoke/pkg/fake"
)

// Client is a thin wrapper over the dispatcher that knows the API layout.
type Client struct {
	baseURL    string
	dispatcher *Dispatcher
	endpoints  *Endpoints
	faker      fake.Provider
	logger     logr.Logger
}

// New returns a client for the API at baseURL.
func New(baseURL string, doer Doer, faker fake.Provider, options Options) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		dispatcher: NewDispatcher(doer, options),
		endpoints:  NewEndpoints(),
		faker:      faker,
		logger:     options.Logger,
	}
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) dispatch(ctx context.Context, method, path string, body url.Values, opts []RequestOption) (*Result, error) {
	r := Request{
		Method: method,
		URL:    c.baseURL + path,
		Body:   body,
	}

	for _, opt := range opts {
		opt(&r)
	}

	return c.dispatcher.Dispatch(ctx, r)
}

// status returns the status of a result that may accompany an error.
func status(result *Result) int {
	if result == nil {
		return 0
	}

	return result.StatusCode
}

// Get returns the decoded JSON at {base}/{endpoint}/{id}.
func (c *Client) Get(ctx context.Context, endpoint, id string, opts ...RequestOption) (interface{}, error) {
	result, err := c.dispatch(ctx, http.MethodGet, c.endpoints.Resource(endpoint, id), nil, opts)
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", endpoint, id, err)
	}

	if !result.HasJSON {
		return nil, fmt.Errorf("getting %s %q: %w: status %d, body: %s", endpoint, id, ErrNotJSON, result.StatusCode, string(result.Body))
	}

	return result.JSON, nil
}

// Post sends the body to {base}/{endpoint}/ and returns the status code.
func (c *Client) Post(ctx context.Context, endpoint string, body url.Values, opts ...RequestOption) (int, error) {
	result, err := c.dispatch(ctx, http.MethodPost, c.endpoints.Resource(endpoint, ""), body, opts)
	if err != nil {
		return status(result), fmt.Errorf("posting %s: %w", endpoint, err)
	}

	return result.StatusCode, nil
}

// Put sends the body to {base}/{endpoint}/{id} and returns the status code.
func (c *Client) Put(ctx context.Context, endpoint, id string, body url.Values, opts ...RequestOption) (int, error) {
	result, err := c.dispatch(ctx, http.MethodPut, c.endpoints.Resource(endpoint, id), body, opts)
	if err != nil {
		return status(result), fmt.Errorf("putting %s %q: %w", endpoint, id, err)
	}

	return result.StatusCode, nil
}

// Delete deletes {base}/{endpoint}/{id} and returns the status code.
func (c *Client) Delete(ctx context.Context, endpoint, id string, opts ...RequestOption) (int, error) {
	result, err := c.dispatch(ctx, http.MethodDelete, c.endpoints.Resource(endpoint, id), nil, opts)
	if err != nil {
		return status(result), fmt.Errorf("deleting %s %q: %w", endpoint, id, err)
	}

	return result.StatusCode, nil
}

// GetUser returns a single user.
func (c *Client) GetUser(ctx context.Context, userID string, opts ...RequestOption) (map[string]interface{}, error) {
	result, err := c.dispatch(ctx, http.MethodGet, c.endpoints.GetUser(userID), nil, opts)
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", userID, err)
	}

	user, err := result.Object()
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", userID, err)
	}

	return user, nil
}

// ListUsers returns every user in the order the service keeps them.
func (c *Client) ListUsers(ctx context.Context) ([]map[string]interface{}, error) {
	result, err := c.dispatch(ctx, http.MethodGet, c.endpoints.ListUsers(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	users, err := result.Objects()
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	return users, nil
}

// CreateUser creates a user from fake data, returning the code and what was sent.
func (c *Client) CreateUser(ctx context.Context) (int, User, error) {
	user := NewUser(c.faker)

	code, err := c.Post(ctx, UsersEndpoint, user.Values())
	if err != nil {
		return code, user, err
	}

	c.logger.V(1).Info("created user", "status", code, "name", user.Name, "username", user.Username, "email", user.Email)

	return code, user, nil
}

// UpdateUser replaces a user's attributes with fake data.
func (c *Client) UpdateUser(ctx context.Context, userID string) (int, User, error) {
	user := NewUser(c.faker)

	code, err := c.Put(ctx, UsersEndpoint, userID, user.Values())
	if err != nil {
		return code, user, err
	}

	c.logger.V(1).Info("updated user", "id", userID, "status", code)

	return code, user, nil
}

// DeleteUser deletes a user.
func (c *Client) DeleteUser(ctx context.Context, userID string) (int, error) {
	code, err := c.Delete(ctx, UsersEndpoint, userID)
	if err != nil {
		return code, err
	}

	c.logger.V(1).Info("deleted user", "id", userID, "status", code)

	return code, nil
}
