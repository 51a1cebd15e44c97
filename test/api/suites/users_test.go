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

//nolint:testpackage,revive // test package in suites is standard for these tests, dot imports standard for Ginkgo
package suites

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	usersclient "github.com/unikorn-cloud/users-smoke/pkg/client"
	"github.com/unikorn-cloud/users-smoke/test/api"
)

var _ = Describe("User Management", func() {
	Context("When creating a user", func() {
		Describe("Given fake user data", func() {
			It("should respond 201 Created and store what was sent", func() {
				code, user, err := client.CreateUser(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(code).To(Equal(http.StatusCreated))

				users, err := client.ListUsers(ctx)
				Expect(err).NotTo(HaveOccurred())

				created, ok := usersclient.FindUserByEmail(users, user.Email)
				Expect(ok).To(BeTrue(), "Expected user with email %s to be listed", user.Email)
				api.VerifyUserMatches(user, created)

				userID, err := usersclient.UserID(created)
				Expect(err).NotTo(HaveOccurred())

				DeferCleanup(func() {
					_, _ = client.Delete(ctx, usersclient.UsersEndpoint, userID, usersclient.WithExpectedError())
				})
			})
		})

		Describe("Given a user built for the test", func() {
			It("should be listed and readable by ID", func() {
				payload := api.NewUserPayload()
				_, userID := api.CreateUserWithCleanup(client, ctx, payload)

				users, err := client.ListUsers(ctx)
				Expect(err).NotTo(HaveOccurred())
				api.VerifyUserPresence(users, []string{userID})

				user, err := client.GetUser(ctx, userID)
				Expect(err).NotTo(HaveOccurred())
				api.VerifyUserMatches(payload.Build(), user)
			})
		})
	})

	Context("When updating a user", func() {
		Describe("Given fixed existing users", func() {
			It("should respond 200 OK", func() {
				_, err := client.GetUser(ctx, config.FetchUserID)
				Expect(err).NotTo(HaveOccurred())

				code, _, err := client.UpdateUser(ctx, config.UpdateUserID)
				Expect(err).NotTo(HaveOccurred())
				Expect(code).To(Equal(http.StatusOK))
			})
		})

		Describe("Given a user created for the test", func() {
			It("should read back the new attributes", func() {
				_, userID := api.CreateUserWithCleanup(client, ctx, api.NewUserPayload())

				code, updated, err := client.UpdateUser(ctx, userID)
				Expect(err).NotTo(HaveOccurred())
				Expect(code).To(Equal(http.StatusOK))

				user, err := client.GetUser(ctx, userID)
				Expect(err).NotTo(HaveOccurred())
				api.VerifyUserMatches(updated, user)
			})
		})
	})

	Context("When deleting the last user", func() {
		Describe("Given users exist", func() {
			BeforeEach(func() {
				api.CreateUserWithCleanup(client, ctx, api.NewUserPayload())
			})

			It("should respond 200 OK and remove the user", func() {
				users, err := client.ListUsers(ctx)
				Expect(err).NotTo(HaveOccurred())

				userID, ok, err := usersclient.LastUserID(users)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())

				code, err := client.DeleteUser(ctx, userID)
				Expect(err).NotTo(HaveOccurred())
				Expect(code).To(Equal(http.StatusOK))

				users, err = client.ListUsers(ctx)
				Expect(err).NotTo(HaveOccurred())
				api.VerifyUserAbsence(users, []string{userID})
			})
		})
	})

	Context("When a user does not exist", func() {
		Describe("Given an error is expected", func() {
			It("should report 404 after a single attempt", func() {
				code, err := client.Delete(ctx, usersclient.UsersEndpoint, "does-not-exist", usersclient.WithExpectedError())
				Expect(err).NotTo(HaveOccurred())
				Expect(code).To(Equal(http.StatusNotFound))

				if stub != nil {
					Expect(stub.Faults().Requests(http.MethodDelete)).To(Equal(1))
				}
			})
		})
	})

	Context("When running the smoke scenarios", func() {
		It("should pass every scenario", func() {
			Expect(api.RunScenarios(ctx, client, api.Scenarios())).To(Succeed())
		})
	})
})

var _ = Describe("Retry Behaviour", func() {
	BeforeEach(requireStub)

	Context("When the service fails transiently", func() {
		Describe("Given an update", func() {
			It("should retry until the update succeeds", func() {
				stub.Faults().Inject(http.MethodPut, http.StatusInternalServerError, 2)

				code, _, err := client.UpdateUser(ctx, config.UpdateUserID)
				Expect(err).NotTo(HaveOccurred())
				Expect(code).To(Equal(http.StatusOK))
				Expect(stub.Faults().Requests(http.MethodPut)).To(Equal(3))
			})
		})

		Describe("Given a create", func() {
			It("should send it exactly once", func() {
				stub.Faults().Inject(http.MethodPost, http.StatusInternalServerError, 1)

				code, _, err := client.CreateUser(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(code).To(Equal(http.StatusInternalServerError))
				Expect(stub.Faults().Requests(http.MethodPost)).To(Equal(1))
			})
		})
	})

	Context("When the service keeps failing", func() {
		Describe("Given a delete", func() {
			It("should give up after the configured attempts", func() {
				stub.Faults().Inject(http.MethodDelete, http.StatusServiceUnavailable, config.RetryMaxAttempts)

				code, err := client.DeleteUser(ctx, config.UpdateUserID)
				Expect(err).To(MatchError(usersclient.ErrRetriesExhausted))
				Expect(code).To(Equal(http.StatusServiceUnavailable))
				Expect(stub.Faults().Requests(http.MethodDelete)).To(Equal(config.RetryMaxAttempts))
			})
		})
	})
})
