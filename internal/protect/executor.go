// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package protect wraps calls to external services in a uniform logging and
// error-translation boundary.
//
// Every service wrapper routes its I/O through an Executor so that failures
// surface as *Error values carrying the originating service and operation
// names. The executor never retries, never enforces timeouts and never
// swallows an error: retry policy belongs to the orchestration runtime.
package protect

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	cflog "github.com/gazolla/cafeflow/internal/log"
)

// Executor runs units of work with entry/exit logging and error normalization.
// The zero value and a nil *Executor are usable and log to slog.Default().
type Executor struct {
	logger *slog.Logger
}

// New creates an Executor that logs through logger.
func New(logger *slog.Logger) *Executor {
	return &Executor{logger: logger}
}

func (e *Executor) log() *slog.Logger {
	if e == nil {
		return slog.Default()
	}
	return cflog.OrDefault(e.logger)
}

// Run executes work that produces no value.
// See RunValue for the logging and error contract.
func (e *Executor) Run(ctx context.Context, service, operation string, work func(context.Context) error) error {
	_, err := RunValue(ctx, e, service, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, work(ctx)
	})
	return err
}

// RunValue executes work and returns its result unchanged on success.
//
// A debug record is written immediately before the call and after it
// returns successfully. When work returns an error or panics, the failure is
// logged at error level and returned as an *Error whose Service and Operation
// match the arguments exactly and whose Cause is the original error.
func RunValue[T any](ctx context.Context, e *Executor, service, operation string, work func(context.Context) (T, error)) (T, error) {
	logger := e.log().With(
		slog.String(cflog.ServiceKey, service),
		slog.String(cflog.OperationKey, operation),
	)

	logger.DebugContext(ctx, "executing operation")
	start := time.Now()

	value, err := invoke(ctx, work)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		logger.ErrorContext(ctx, "operation failed",
			slog.String("message", err.Error()),
			slog.Int64(cflog.DurationKey, elapsed),
		)
		var zero T
		return zero, &Error{Service: service, Operation: operation, Cause: err}
	}

	logger.DebugContext(ctx, "operation completed", slog.Int64(cflog.DurationKey, elapsed))
	return value, nil
}

// invoke calls work, converting a panic into an error.
func invoke[T any](ctx context.Context, work func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return work(ctx)
}

// PanicError is the cause recorded when protected work panics.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}
