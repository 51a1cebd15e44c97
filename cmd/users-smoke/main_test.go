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

package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unikorn-cloud/users-smoke/test/api"
)

func testConfig(t *testing.T) *api.TestConfig {
	t.Helper()

	return &api.TestConfig{
		BaseURL:              "http://127.0.0.1:1",
		RequestTimeout:       5 * time.Second,
		TestTimeout:          30 * time.Second,
		LogFile:              filepath.Join(t.TempDir(), "logs.log"),
		LogLevel:             "info",
		RetryMaxAttempts:     2,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     time.Millisecond,
		BodyEncoding:         "form",
		FetchUserID:          "4",
		UpdateUserID:         "55",
	}
}

func TestRunAgainstStub(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	cmd := newRootCommand(testConfig(t))
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--stub", "--body-encoding=json", "--validate-responses"})

	require.NoError(t, cmd.ExecuteContext(t.Context()))
	require.Contains(t, stdout.String(), "all scenarios passed")
}

func TestRunFailsWithoutService(t *testing.T) {
	t.Parallel()

	cmd := newRootCommand(testConfig(t))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run"})

	err := cmd.ExecuteContext(t.Context())
	require.ErrorContains(t, err, "smoke tests failed against http://127.0.0.1:1")
}

func TestRunRejectsInvalidFlags(t *testing.T) {
	t.Parallel()

	cmd := newRootCommand(testConfig(t))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--retry-max-attempts=0"})

	require.ErrorIs(t, cmd.ExecuteContext(t.Context()), api.ErrInvalidConfig)
}

func TestStubRejectsNegativeSeed(t *testing.T) {
	t.Parallel()

	cmd := newRootCommand(testConfig(t))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"stub", "--seed-users=-1"})

	require.Error(t, cmd.ExecuteContext(t.Context()))
}
