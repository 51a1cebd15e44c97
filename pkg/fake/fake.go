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

package fake

import (
	"github.com/brianvoe/gofakeit/v7"
)

// Provider produces synthetic user attributes, a fresh value per call.
type Provider interface {
	Name() string
	Username() string
	Email() string
}

// Faker is a Provider backed by gofakeit.
type Faker struct {
	faker *gofakeit.Faker
}

var _ Provider = &Faker{}

// New returns a new faker.  A zero seed draws a random one, any other
// value gives a reproducible sequence.
func New(seed uint64) *Faker {
	return &Faker{
		faker: gofakeit.New(seed),
	}
}

func (f *Faker) Name() string {
	return f.faker.Name()
}

func (f *Faker) Username() string {
	return f.faker.Username()
}

func (f *Faker) Email() string {
	return f.faker.Email()
}

// Static is a Provider that always returns the same values, handy when a
// test needs to know the payload up front.
type Static struct {
	FullName string
	UserName string
	Address  string
}

var _ Provider = Static{}

func (s Static) Name() string {
	return s.FullName
}

func (s Static) Username() string {
	return s.UserName
}

func (s Static) Email() string {
	return s.Address
}
