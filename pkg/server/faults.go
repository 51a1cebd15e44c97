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

package server

import (
	"net/http"
	"sync"

	"github.com/unikorn-cloud/users-smoke/pkg/server/handler/users"
)

// Faults makes the service fail on demand, so retries can be exercised
// over a real connection.
type Faults struct {
	lock     sync.Mutex
	pending  map[string][]int
	requests map[string]int
}

// NewFaults returns an empty fault table.
func NewFaults() *Faults {
	return &Faults{
		pending:  map[string][]int{},
		requests: map[string]int{},
	}
}

// Inject fails the next count requests of the method with the status.
func (f *Faults) Inject(method string, status, count int) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for range count {
		f.pending[method] = append(f.pending[method], status)
	}
}

// Requests returns how many requests of the method have been seen.
func (f *Faults) Requests(method string) int {
	f.lock.Lock()
	defer f.lock.Unlock()

	return f.requests[method]
}

// Reset clears pending faults and counters.
func (f *Faults) Reset() {
	f.lock.Lock()
	defer f.lock.Unlock()

	clear(f.pending)
	clear(f.requests)
}

func (f *Faults) next(method string) (int, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.requests[method]++

	queue := f.pending[method]
	if len(queue) == 0 {
		return 0, false
	}

	f.pending[method] = queue[1:]

	return queue[0], true
}

// Middleware counts requests and answers with any pending fault.
func (f *Faults) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, ok := f.next(r.Method); ok {
			users.WriteJSONResponse(w, status, map[string]string{"error": "injected fault"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
