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

//nolint:revive,staticcheck // dot imports are standard for Ginkgo/Gomega test code
package api

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/unikorn-cloud/users-smoke/pkg/client"
	"github.com/unikorn-cloud/users-smoke/pkg/fake"
	"github.com/unikorn-cloud/users-smoke/pkg/log"
	"github.com/unikorn-cloud/users-smoke/pkg/server"
)

// StartStubServer serves a freshly seeded stub users service for the
// current node and points the configuration at it.  The server is shut
// down by Ginkgo cleanup.
func StartStubServer(config *TestConfig) *server.Server {
	logger, err := log.NewWriter(GinkgoWriter, "info")
	Expect(err).NotTo(HaveOccurred())

	srv := server.New(server.Options{
		SeedUsers: server.DefaultSeedUsers,
		Faker:     fake.New(config.FakerSeed),
		Logger:    logger,
	})

	ts := httptest.NewServer(srv.Handler())

	config.BaseURL = ts.URL

	GinkgoWriter.Printf("Started stub users service at %s\n", ts.URL)

	DeferCleanup(func() {
		ts.Close()
		GinkgoWriter.Printf("Stopped stub users service at %s\n", ts.URL)
	})

	return srv
}

// CreateUserWithCleanup creates the user, finds it again by email and
// schedules its deletion.  Returns the user as listed and its ID.
func CreateUserWithCleanup(c *APIClient, ctx context.Context, payload *UserPayloadBuilder) (map[string]interface{}, string) {
	user := payload.Build()

	code, err := c.Post(ctx, client.UsersEndpoint, user.Values())
	Expect(err).NotTo(HaveOccurred())
	Expect(code).To(Equal(http.StatusCreated))

	users, err := c.ListUsers(ctx)
	Expect(err).NotTo(HaveOccurred())

	created, ok := client.FindUserByEmail(users, user.Email)
	Expect(ok).To(BeTrue(), "Expected user with email %s to be listed", user.Email)

	userID, err := client.UserID(created)
	Expect(err).NotTo(HaveOccurred())

	// Schedule cleanup - this runs whether the test passes or fails so we don't need to clean up manually
	DeferCleanup(func() {
		GinkgoWriter.Printf("Cleaning up user: %s\n", userID)

		// The test may have deleted it already.
		deleteCode, deleteErr := c.Delete(ctx, client.UsersEndpoint, userID, client.WithExpectedError())
		if deleteErr != nil {
			GinkgoWriter.Printf("Warning: Failed to delete user %s: %v\n", userID, deleteErr)
		} else {
			GinkgoWriter.Printf("Deleted user %s: status %d\n", userID, deleteCode)
		}
	})

	return created, userID
}

// VerifyUserMatches verifies that a listed user carries the sent attributes.
func VerifyUserMatches(user client.User, object map[string]interface{}) {
	Expect(object).To(HaveKeyWithValue("name", user.Name))
	Expect(object).To(HaveKeyWithValue("username", user.Username))
	Expect(object).To(HaveKeyWithValue("email", user.Email))
}

// VerifyUserPresence verifies that users are present in the list.
func VerifyUserPresence(users []map[string]interface{}, expectedUserIDs []string) {
	userIDs := extractUserIDs(users)
	for _, expectedID := range expectedUserIDs {
		Expect(userIDs).To(ContainElement(expectedID), "Expected user ID %s to be present in the list", expectedID)
	}
}

// VerifyUserAbsence verifies that users are absent from the list.
func VerifyUserAbsence(users []map[string]interface{}, unexpectedUserIDs []string) {
	userIDs := extractUserIDs(users)
	for _, unexpectedID := range unexpectedUserIDs {
		Expect(userIDs).NotTo(ContainElement(unexpectedID), "Expected user ID %s to be absent from the list", unexpectedID)
	}
}

// extractUserIDs extracts user IDs from a list of user maps.
func extractUserIDs(users []map[string]interface{}) []string {
	userIDs := make([]string, len(users))

	for i, user := range users {
		id, err := client.UserID(user)
		Expect(err).NotTo(HaveOccurred())

		userIDs[i] = id
	}

	return userIDs
}
