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
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/unikorn-cloud/users-smoke/pkg/client"
	"github.com/unikorn-cloud/users-smoke/pkg/fake"
)

func generateRandomName(prefix string) string {
	bytes := make([]byte, 4) // 8 hex characters
	_, _ = rand.Read(bytes)

	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(bytes))
}

func GenerateTestID() string {
	return generateRandomName("test")
}

// UserPayloadBuilder builds user payloads for testing.
type UserPayloadBuilder struct {
	user client.User
}

// NewUserPayload creates a builder whose defaults are unique to this run, so
// the user can be found again by email.
func NewUserPayload() *UserPayloadBuilder {
	id := GenerateTestID()

	return &UserPayloadBuilder{
		user: client.User{
			Name:     "Test Automation " + id,
			Username: id,
			Email:    id + "@example.com",
		},
	}
}

// WithName sets the user's name.
func (b *UserPayloadBuilder) WithName(name string) *UserPayloadBuilder {
	b.user.Name = name
	return b
}

// WithUsername sets the user's username.
func (b *UserPayloadBuilder) WithUsername(username string) *UserPayloadBuilder {
	b.user.Username = username
	return b
}

// WithEmail sets the user's email.
func (b *UserPayloadBuilder) WithEmail(email string) *UserPayloadBuilder {
	b.user.Email = email
	return b
}

// Provider returns the payload as a fake data source, e.g. to seed a client.
func (b *UserPayloadBuilder) Provider() fake.Provider {
	return fake.Static{
		FullName: b.user.Name,
		UserName: b.user.Username,
		Address:  b.user.Email,
	}
}

// Build returns the user.
func (b *UserPayloadBuilder) Build() client.User {
	return b.user
}
