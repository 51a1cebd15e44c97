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
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unikorn-cloud/users-smoke/pkg/constants"
	"github.com/unikorn-cloud/users-smoke/pkg/fake"
	"github.com/unikorn-cloud/users-smoke/pkg/log"
	"github.com/unikorn-cloud/users-smoke/pkg/server"
	"github.com/unikorn-cloud/users-smoke/test/api"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := api.LoadTestConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if err := newRootCommand(config).ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly
	}
}

func newRootCommand(config *api.TestConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:           constants.Application,
		Short:         "Smoke test a users REST API.",
		Version:       constants.VersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCommand(config), newStubCommand(config))

	return cmd
}

func newRunCommand(config *api.TestConfig) *cobra.Command {
	var (
		stub    bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the smoke scenarios, failing if any of them fail.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if stub {
				stopped, err := startStub(ctx, config, cmd.ErrOrStderr())
				if err != nil {
					return err
				}

				defer func() {
					cancel()
					<-stopped
				}()
			}

			var writers []io.Writer

			if verbose {
				writers = append(writers, cmd.ErrOrStderr())
			}

			c, err := api.NewAPIClientWithConfig(ctx, config, writers...)
			if err != nil {
				return err
			}

			defer c.Close()

			if err := api.RunScenarios(ctx, c, api.Scenarios()); err != nil {
				return fmt.Errorf("smoke tests failed against %s: %w", config.BaseURL, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "all scenarios passed against %s\n", config.BaseURL)

			return nil
		},
	}

	config.AddFlags(cmd.Flags())
	cmd.Flags().BoolVar(&stub, "stub", false, "Run against an in-process stub service instead of --base-url.")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Copy log lines to stderr.")

	return cmd
}

// startStub serves a seeded stub on a free local port and points the
// configuration at it.  The returned channel closes once it has stopped.
func startStub(ctx context.Context, config *api.TestConfig, w io.Writer) (<-chan struct{}, error) {
	logger, err := log.NewWriter(w, "error")
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listening for stub service: %w", err)
	}

	s := server.New(server.Options{
		SeedUsers: server.DefaultSeedUsers,
		Faker:     fake.New(config.FakerSeed),
		Logger:    logger,
	})

	config.BaseURL = "http://" + listener.Addr().String()

	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		if err := s.Serve(ctx, listener); err != nil {
			logger.Error(err, "stub service failed")
		}
	}()

	return stopped, nil
}

func newStubCommand(config *api.TestConfig) *cobra.Command {
	options := server.Options{
		ListenAddress: server.DefaultListenAddress,
		SeedUsers:     server.DefaultSeedUsers,
	}

	var (
		seed     uint64
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve an in-memory users API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if options.SeedUsers < 0 {
				return errors.New("--seed-users must not be negative") //nolint:err113
			}

			logger, err := log.NewWriter(cmd.ErrOrStderr(), logLevel)
			if err != nil {
				return err
			}

			logger.Info("service starting", "application", constants.Application, "version", constants.Version, "revision", constants.Revision)

			options.Faker = fake.New(seed)
			options.Logger = logger

			return server.New(options).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&options.ListenAddress, "listen-address", options.ListenAddress, "Address to serve on.")
	cmd.Flags().IntVar(&options.SeedUsers, "seed-users", options.SeedUsers, "Number of users to start with.")
	cmd.Flags().Uint64Var(&seed, "faker-seed", config.FakerSeed, "Fake data seed, 0 for random.")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Minimum log level.")

	return cmd
}
