// Copyright (c) 2017 Intel Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package launch starts external JVM entry points and waits for them.
package launch

import (
	"context"
	"time"
)

// InvocationRequest describes a single launch of an external entry point.
// It is built once per launch and not changed afterwards.
type InvocationRequest struct {
	// EntryPoint is the main class to run.
	EntryPoint string
	// Classpath is an ordered list of library locations.
	Classpath []string
	// ExtraResources are prepended to the classpath, e.g. user topology jar.
	ExtraResources []string
	// Args are passed to the entry point as they are.
	Args []string
	// Defines are passed as -Dkey=value system properties.
	Defines map[string]string
	// Options are heron launcher options passed in -Dheron.options.
	Options map[string]string
	// Timeout bounds the launch. Zero means the launcher default.
	Timeout time.Duration
}

// Result of a finished launch.
type Result struct {
	ExitCode int
	Stdout   string
}

// Launcher runs an InvocationRequest and blocks until the launched process exits.
// Start failure, non-zero exit code, timeout and cancellation are errors.
type Launcher interface {
	Launch(ctx context.Context, request InvocationRequest) (Result, error)
}
