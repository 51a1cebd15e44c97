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

// Package log builds the file backed logger shared by the client, the
// stub service and the test suites.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultFile is where request logs go unless told otherwise.
	DefaultFile = "logs/logs.log"

	// DefaultLevel logs everything the dispatcher emits.
	DefaultLevel = "debug"

	timeLayout = "2006-01-02 15:04:05,000"
)

// Options configures the logger.
type Options struct {
	// File is the log file path, created along with its parent directory.
	// Lines are only ever appended.
	File string

	// Level is the minimum level, e.g. "debug", "info" or "error".
	Level string

	// Writers receive a copy of every line, e.g. GinkgoWriter.
	Writers []io.Writer
}

// CloseFunc flushes and closes the log sink.
type CloseFunc func() error

// encoderConfig renders "<timestamp> - <LEVEL> - <message>", with any
// key/values appended as a JSON object.
func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
	}
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		level = DefaultLevel
	}

	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return l, fmt.Errorf("parsing log level: %w", err)
	}

	return l, nil
}

// New returns a logger writing to the configured file and any extra writers.
func New(options Options) (logr.Logger, CloseFunc, error) {
	level, err := parseLevel(options.Level)
	if err != nil {
		return logr.Discard(), nil, err
	}

	path := options.File
	if path == "" {
		path = DefaultFile
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return logr.Discard(), nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return logr.Discard(), nil, fmt.Errorf("opening log file: %w", err)
	}

	sinks := []zapcore.WriteSyncer{
		zapcore.Lock(file),
	}

	for _, w := range options.Writers {
		sinks = append(sinks, zapcore.AddSync(w))
	}

	z := zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.NewMultiWriteSyncer(sinks...), level))

	closer := func() error {
		// Syncing a pipe or terminal may fail, the file is what matters.
		_ = z.Sync()

		return file.Close()
	}

	return zapr.NewLogger(z), closer, nil
}

// NewWriter returns a logger for a single writer, used by the CLI.
func NewWriter(w io.Writer, level string) (logr.Logger, error) {
	l, err := parseLevel(level)
	if err != nil {
		return logr.Discard(), err
	}

	z := zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(w), l))

	return zapr.NewLogger(z), nil
}
