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
	"fmt"
	"net/url"
	"strconv"

	"github.com/unikorn-cloud/users-smoke/pkg/fake"
)

// UsersEndpoint is the users collection.
const UsersEndpoint = "users"

// User is the payload sent when creating or updating a user.
type User struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// NewUser composes a user from fresh fake data.
func NewUser(provider fake.Provider) User {
	return User{
		Name:     provider.Name(),
		Username: provider.Username(),
		Email:    provider.Email(),
	}
}

// Values returns the user as a request body.
func (u User) Values() url.Values {
	return url.Values{
		"name":     []string{u.Name},
		"username": []string{u.Username},
		"email":    []string{u.Email},
	}
}

// Matches reports whether a user object returned by the API carries the
// same attributes.
func (u User) Matches(object map[string]interface{}) bool {
	return object["name"] == u.Name && object["username"] == u.Username && object["email"] == u.Email
}

// FormatID renders an ID as it appears in a URL.  IDs may be JSON numbers
// or strings depending on the service.
func FormatID(id interface{}) (string, error) {
	switch t := id.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case fmt.Stringer:
		return t.String(), nil
	}

	return "", fmt.Errorf("%w: id has type %T", ErrUnexpectedType, id)
}

// UserID returns the formatted ID of a user object.
func UserID(user map[string]interface{}) (string, error) {
	id, ok := user["id"]
	if !ok {
		return "", fmt.Errorf("%w: user has no id", ErrUnexpectedType)
	}

	return FormatID(id)
}

// LastUserID returns the ID of the last user in the list, and false when
// the list is empty.
func LastUserID(users []map[string]interface{}) (string, bool, error) {
	if len(users) == 0 {
		return "", false, nil
	}

	id, err := UserID(users[len(users)-1])
	if err != nil {
		return "", false, err
	}

	return id, true, nil
}

// FindUserByEmail returns the last user with the given email.
func FindUserByEmail(users []map[string]interface{}, email string) (map[string]interface{}, bool) {
	for i := len(users) - 1; i >= 0; i-- {
		if users[i]["email"] == email {
			return users[i], true
		}
	}

	return nil, false
}
