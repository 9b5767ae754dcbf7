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

package orchestrator

import "fmt"

// TopologyGenerationError is returned when the topology main class could not be run
// or failed.
type TopologyGenerationError struct {
	TopologyClass string
	Cause         error
}

func (e *TopologyGenerationError) Error() string {
	return fmt.Sprintf("cannot generate topology definitions with %s: %v", e.TopologyClass, e.Cause)
}

// Unwrap returns the launch error.
func (e *TopologyGenerationError) Unwrap() error {
	return e.Cause
}

// NoArtifactsError is returned when topology main class wrote no definitions.
type NoArtifactsError struct {
	Dir string
}

func (e *NoArtifactsError) Error() string {
	return fmt.Sprintf("no topologies found in %q", e.Dir)
}

// ResourceComputationError is returned when resources of a topology could not be computed.
type ResourceComputationError struct {
	Artifact string
	Cause    error
}

func (e *ResourceComputationError) Error() string {
	return fmt.Sprintf("cannot compute resources of %q: %v", e.Artifact, e.Cause)
}

// Unwrap returns the launch error.
func (e *ResourceComputationError) Unwrap() error {
	return e.Cause
}
