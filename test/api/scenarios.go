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
	"net/http"

	"github.com/unikorn-cloud/users-smoke/pkg/client"
)

var (
	// ErrUnexpectedStatus is returned when a scenario sees the wrong status code.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrUserMismatch is returned when a created user does not read back as sent.
	ErrUserMismatch = errors.New("user mismatch")
)

// Scenario is a single named check against the users API.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, c *APIClient) error
}

// Scenarios returns the smoke checks in the order they are run.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "create user", Run: CreateUserScenario},
		{Name: "update user", Run: UpdateUserScenario},
		{Name: "delete last user", Run: DeleteLastUserScenario},
	}
}

func expectStatus(operation string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s returned %d, expected %d", ErrUnexpectedStatus, operation, got, want)
	}

	return nil
}

// CreateUserScenario creates a user from fake data, expects a 201, then
// finds it in the user list by email and checks it reads back as sent.
func CreateUserScenario(ctx context.Context, c *APIClient) error {
	code, user, err := c.CreateUser(ctx)
	if err != nil {
		return err
	}

	if err := expectStatus("create user", code, http.StatusCreated); err != nil {
		return err
	}

	users, err := c.ListUsers(ctx)
	if err != nil {
		return err
	}

	created, ok := client.FindUserByEmail(users, user.Email)
	if !ok {
		return fmt.Errorf("%w: no user with email %q", ErrUserMismatch, user.Email)
	}

	if !user.Matches(created) {
		return fmt.Errorf("%w: sent %+v, read back %v", ErrUserMismatch, user, created)
	}

	return nil
}

// UpdateUserScenario reads one fixed user then updates another, expecting a 200.
func UpdateUserScenario(ctx context.Context, c *APIClient) error {
	if _, err := c.GetUser(ctx, c.config.FetchUserID); err != nil {
		return err
	}

	code, _, err := c.UpdateUser(ctx, c.config.UpdateUserID)
	if err != nil {
		return err
	}

	return expectStatus("update user", code, http.StatusOK)
}

// DeleteLastUserScenario deletes the last listed user, expecting a 200.
// An empty list is not a failure.
func DeleteLastUserScenario(ctx context.Context, c *APIClient) error {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return err
	}

	id, ok, err := client.LastUserID(users)
	if err != nil {
		return err
	}

	if !ok {
		c.logger.Info("no users to delete")

		return nil
	}

	code, err := c.DeleteUser(ctx, id)
	if err != nil {
		return err
	}

	return expectStatus("delete user", code, http.StatusOK)
}

// RunScenarios runs each scenario in turn, each bounded by the test timeout.
// Every scenario runs regardless of earlier failures, and all failures are
// returned together.
func RunScenarios(ctx context.Context, c *APIClient, scenarios []Scenario) error {
	var errs []error

	for _, scenario := range scenarios {
		if err := runScenario(ctx, c, scenario); err != nil {
			c.logger.Error(err, "scenario failed", "scenario", scenario.Name)

			errs = append(errs, fmt.Errorf("%s: %w", scenario.Name, err))

			continue
		}

		c.logger.Info("scenario passed", "scenario", scenario.Name)
	}

	return errors.Join(errs...)
}

func runScenario(ctx context.Context, c *APIClient, scenario Scenario) error {
	if c.config.TestTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.config.TestTimeout)
		defer cancel()
	}

	return scenario.Run(ctx, c)
}
