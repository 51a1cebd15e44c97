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

// Package api provides integration test utilities for the users API.
//
// # Separate Client Wiring
//
// The HTTP client itself lives in pkg/client and knows nothing about how it
// is configured.  This package builds it from the environment (TestConfig),
// adds Ginkgo fixtures that create and clean up users, and defines the smoke
// scenarios shared by the Ginkgo suites and the users-smoke command.
//
// Requests carry W3C trace context, so a failure reported here can be
// correlated with the service's own logs by trace ID.
//
// When no API_BASE_URL is set the suites run against the in-process stub
// service from pkg/server, so they are hermetic by default.
package api
