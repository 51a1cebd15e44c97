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

package users

import (
	"slices"
	"sync"

	"github.com/unikorn-cloud/users-smoke/pkg/fake"
)

// User is a stored user.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Attributes are the user fields a client may set.
type Attributes struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Store keeps users in memory, in creation order.
type Store struct {
	lock   sync.Mutex
	nextID int
	users  []User
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		nextID: 1,
	}
}

// Seed adds count users made of fake data.
func (s *Store) Seed(count int, provider fake.Provider) {
	for range count {
		s.Create(Attributes{
			Name:     provider.Name(),
			Username: provider.Username(),
			Email:    provider.Email(),
		})
	}
}

// List returns a copy of all users.
func (s *Store) List() []User {
	s.lock.Lock()
	defer s.lock.Unlock()

	users := make([]User, len(s.users))
	copy(users, s.users)

	return users
}

func (s *Store) index(id int) int {
	return slices.IndexFunc(s.users, func(u User) bool {
		return u.ID == id
	})
}

// Get returns a user by ID.
func (s *Store) Get(id int) (User, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	i := s.index(id)
	if i < 0 {
		return User{}, false
	}

	return s.users[i], true
}

// Create adds a user and assigns the next ID.
func (s *Store) Create(attributes Attributes) User {
	s.lock.Lock()
	defer s.lock.Unlock()

	user := User{
		ID:       s.nextID,
		Name:     attributes.Name,
		Username: attributes.Username,
		Email:    attributes.Email,
	}

	s.nextID++
	s.users = append(s.users, user)

	return user
}

// Update replaces a user's attributes.
func (s *Store) Update(id int, attributes Attributes) (User, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	i := s.index(id)
	if i < 0 {
		return User{}, false
	}

	s.users[i] = User{
		ID:       id,
		Name:     attributes.Name,
		Username: attributes.Username,
		Email:    attributes.Email,
	}

	return s.users[i], true
}

// Delete removes a user.
func (s *Store) Delete(id int) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}

	s.users = slices.Delete(s.users, i, i+1)

	return true
}
