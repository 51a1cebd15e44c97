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

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-logr/logr"

	"github.com/unikorn-cloud/users-smoke/pkg/client"
	"github.com/unikorn-cloud/users-smoke/pkg/fake"
	"github.com/unikorn-cloud/users-smoke/pkg/log"
	"github.com/unikorn-cloud/users-smoke/pkg/openapi"
)

// APIClient is a users client wired from test configuration.  It owns the
// log sink, so call Close when done.
type APIClient struct {
	*client.Client

	config *TestConfig
	logger logr.Logger
	close  log.CloseFunc
}

// NewAPIClientWithConfig builds a client from configuration.  Log lines go
// to the configured file and are copied to any extra writers.
func NewAPIClientWithConfig(ctx context.Context, config *TestConfig, writers ...io.Writer) (*APIClient, error) {
	return NewAPIClientWithDoer(ctx, config, &http.Client{Timeout: config.RequestTimeout}, writers...)
}

// NewAPIClientWithDoer is NewAPIClientWithConfig with a caller supplied
// transport.
func NewAPIClientWithDoer(ctx context.Context, config *TestConfig, doer client.Doer, writers ...io.Writer) (*APIClient, error) {
	logger, closer, err := log.New(log.Options{
		File:    config.LogFile,
		Level:   config.LogLevel,
		Writers: writers,
	})
	if err != nil {
		return nil, err
	}

	options, err := config.clientOptions(ctx, logger)
	if err != nil {
		return nil, errors.Join(err, closer())
	}

	c := &APIClient{
		Client: client.New(config.BaseURL, doer, fake.New(config.FakerSeed), options),
		config: config,
		logger: logger,
		close:  closer,
	}

	return c, nil
}

// Logger returns the logger requests are recorded with.
func (c *APIClient) Logger() logr.Logger {
	return c.logger
}

// Config returns the configuration the client was built from.
func (c *APIClient) Config() *TestConfig {
	return c.config
}

// Close flushes and closes the log file.
func (c *APIClient) Close() error {
	return c.close()
}

func (c *TestConfig) clientOptions(ctx context.Context, logger logr.Logger) (client.Options, error) {
	encoding, err := client.ParseEncoding(c.BodyEncoding)
	if err != nil {
		return client.Options{}, err
	}

	options := client.Options{
		Logger:       logger,
		Retry:        c.RetryPolicy(),
		Encoding:     encoding,
		AuthToken:    c.AuthToken,
		LogRequests:  c.LogRequests,
		LogResponses: c.LogResponses,
	}

	if c.CircuitBreaker {
		options.Breaker = &client.BreakerSettings{
			Timeout: c.RequestTimeout,
		}
	}

	if c.ValidateResponses {
		base, err := url.Parse(c.BaseURL)
		if err != nil {
			return client.Options{}, fmt.Errorf("%w: API_BASE_URL: %w", ErrInvalidConfig, err)
		}

		validator, err := openapi.NewValidator(ctx, base.Path)
		if err != nil {
			return client.Options{}, err
		}

		options.Validator = validator
	}

	return options, nil
}
