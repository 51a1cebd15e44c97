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
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/unikorn-cloud/users-smoke/pkg/client"
	"github.com/unikorn-cloud/users-smoke/pkg/log"
)

const (
	// DefaultBaseURL is where the users API is expected to run.
	DefaultBaseURL = "http://localhost:3000"
)

// ErrInvalidConfig is returned when configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

type TestConfig struct {
	BaseURL              string
	AuthToken            string
	UseStubServer        bool
	RequestTimeout       time.Duration
	TestTimeout          time.Duration
	LogFile              string
	LogLevel             string
	LogRequests          bool
	LogResponses         bool
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	CircuitBreaker       bool
	ValidateResponses    bool
	BodyEncoding         string
	FakerSeed            uint64
	FetchUserID          string
	UpdateUserID         string
	SkipIntegration      bool
}

// LoadTestConfig loads configuration from environment variables and .env files.
// Returns an error if any value is unusable.
func LoadTestConfig() (*TestConfig, error) {
	loadEnvFile()

	baseURL := os.Getenv("API_BASE_URL")

	config := &TestConfig{
		BaseURL:              getStringWithDefault("API_BASE_URL", DefaultBaseURL),
		AuthToken:            os.Getenv("API_AUTH_TOKEN"),
		UseStubServer:        getBoolWithDefault("USE_STUB_SERVER", baseURL == ""),
		RequestTimeout:       getDurationWithDefault("REQUEST_TIMEOUT", 30*time.Second),
		TestTimeout:          getDurationWithDefault("TEST_TIMEOUT", 5*time.Minute),
		LogFile:              getStringWithDefault("LOG_FILE", log.DefaultFile),
		LogLevel:             getStringWithDefault("LOG_LEVEL", log.DefaultLevel),
		LogRequests:          getBoolWithDefault("LOG_REQUESTS", true),
		LogResponses:         getBoolWithDefault("LOG_RESPONSES", true),
		RetryMaxAttempts:     getIntWithDefault("RETRY_MAX_ATTEMPTS", client.DefaultRetryPolicy().MaxAttempts),
		RetryInitialInterval: getDurationWithDefault("RETRY_INITIAL_INTERVAL", client.DefaultRetryPolicy().InitialInterval),
		RetryMaxInterval:     getDurationWithDefault("RETRY_MAX_INTERVAL", client.DefaultRetryPolicy().MaxInterval),
		CircuitBreaker:       getBoolWithDefault("CIRCUIT_BREAKER", false),
		ValidateResponses:    getBoolWithDefault("VALIDATE_RESPONSES", false),
		BodyEncoding:         getStringWithDefault("BODY_ENCODING", string(client.EncodingForm)),
		FakerSeed:            getUint64WithDefault("FAKER_SEED", 0),
		FetchUserID:          getStringWithDefault("TEST_FETCH_USER_ID", "4"),
		UpdateUserID:         getStringWithDefault("TEST_UPDATE_USER_ID", "55"),
		SkipIntegration:      getBoolWithDefault("SKIP_INTEGRATION", false),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// AddFlags exposes the configuration on the command line, defaulting to
// whatever the environment provided.
func (c *TestConfig) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&c.BaseURL, "base-url", c.BaseURL, "Users API base URL.")
	f.StringVar(&c.AuthToken, "auth-token", c.AuthToken, "Bearer token sent with every request.")
	f.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "Timeout for a single HTTP request.")
	f.StringVar(&c.LogFile, "log-file", c.LogFile, "File request logs are appended to.")
	f.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Minimum log level.")
	f.BoolVar(&c.LogRequests, "log-requests", c.LogRequests, "Log every request attempt.")
	f.BoolVar(&c.LogResponses, "log-responses", c.LogResponses, "Log response bodies.")
	f.IntVar(&c.RetryMaxAttempts, "retry-max-attempts", c.RetryMaxAttempts, "Attempts for PUT and DELETE requests.")
	f.DurationVar(&c.RetryInitialInterval, "retry-initial-interval", c.RetryInitialInterval, "First retry delay.")
	f.DurationVar(&c.RetryMaxInterval, "retry-max-interval", c.RetryMaxInterval, "Longest retry delay.")
	f.BoolVar(&c.CircuitBreaker, "circuit-breaker", c.CircuitBreaker, "Fail fast once the service keeps failing.")
	f.BoolVar(&c.ValidateResponses, "validate-responses", c.ValidateResponses, "Check responses against the API description.")
	f.StringVar(&c.BodyEncoding, "body-encoding", c.BodyEncoding, "Request body encoding, form or json.")
	f.Uint64Var(&c.FakerSeed, "faker-seed", c.FakerSeed, "Fake data seed, 0 for random.")
	f.StringVar(&c.FetchUserID, "fetch-user-id", c.FetchUserID, "User read by the update scenario.")
	f.StringVar(&c.UpdateUserID, "update-user-id", c.UpdateUserID, "User updated by the update scenario.")
}

// RetryPolicy returns the configured retry policy.
func (c *TestConfig) RetryPolicy() client.RetryPolicy {
	policy := client.DefaultRetryPolicy()
	policy.MaxAttempts = c.RetryMaxAttempts
	policy.InitialInterval = c.RetryInitialInterval
	policy.MaxInterval = c.RetryMaxInterval

	return policy
}

// Validate checks that all configuration values are usable.
func (c *TestConfig) Validate() error {
	var problems []string

	required := map[string]string{
		"API_BASE_URL":        c.BaseURL,
		"LOG_FILE":            c.LogFile,
		"TEST_FETCH_USER_ID":  c.FetchUserID,
		"TEST_UPDATE_USER_ID": c.UpdateUserID,
	}

	for envVar, value := range required {
		if value == "" {
			problems = append(problems, envVar+" is required")
		}
	}

	if err := c.RetryPolicy().Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if _, err := client.ParseEncoding(c.BodyEncoding); err != nil {
		problems = append(problems, err.Error())
	}

	if u, err := url.Parse(c.BaseURL); c.BaseURL != "" && (err != nil || u.Scheme == "" || u.Host == "") {
		problems = append(problems, "API_BASE_URL must be an absolute URL")
	}

	if c.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT must be positive")
	}

	if len(problems) > 0 {
		// Map iteration is random, keep the message stable.
		slices.Sort(problems)

		return fmt.Errorf("%w: %s. Please set these environment variables or add them to a .env file", ErrInvalidConfig, strings.Join(problems, ", "))
	}

	return nil
}

// getStringWithDefault gets a string from environment variable or returns default.
func getStringWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// getDurationWithDefault gets a duration from environment variable or returns default.
func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getBoolWithDefault gets a boolean from environment variable or returns default.
func getBoolWithDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

// getIntWithDefault gets an integer from environment variable or returns default.
func getIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getUint64WithDefault(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	uintValue, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return uintValue
}

func loadEnvFile() {
	envPaths := []string{
		".env",          // From the repository root, e.g. the CLI
		"../../.env",    // From test/api
		"../../../.env", // From test/api/suites directory
	}

	var envPath string

	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				envPath = absPath
				break
			}
		}
	}

	if envPath == "" {
		// .env file not found - this is OK in CI/CD where env vars are set directly
		return
	}

	// Load .env file, variables already set take precedence.
	if err := godotenv.Load(envPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file from %s: %v\n", envPath, err)
	}
}
