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

// Package topology reads topology definition artifacts written by topology
// submitters (serialized heron Topology messages).
package topology

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DefinitionExtension is the file extension of serialized topology definitions.
const DefinitionExtension = ".defn"

// InitialState is the state a submitted topology starts in.
// It is passed to the submitter untouched.
type InitialState string

const (
	// Running topology processes tuples right after submission.
	Running InitialState = "RUNNING"
	// Paused topology has to be activated after submission.
	Paused InitialState = "PAUSED"
	// Killed is never requested by users, present for completeness of the state enum.
	Killed InitialState = "KILLED"
)

func (s InitialState) String() string {
	return string(s)
}

// ParseError is returned when an artifact cannot be read or decoded.
type ParseError struct {
	Path  string
	Cause error
}

func (e *ParseError) Error() string {
	return "cannot parse topology definition " + e.Path + ": " + e.Cause.Error()
}

// Unwrap returns the cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Definition is a decoded topology definition artifact.
type Definition struct {
	// Path of the artifact file.
	Path   string
	ID     string
	Name   string
	Spouts []string
	Bolts  []string
	State  InitialState
}

// ReadFile reads and decodes artifact from path.
func ReadFile(path string) (Definition, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return Definition{}, &ParseError{Path: path, Cause: err}
	}

	definition, err := Unmarshal(content)
	if err != nil {
		return Definition{}, &ParseError{Path: path, Cause: err}
	}
	definition.Path = path
	return definition, nil
}

// Discover returns paths of regular *.defn files placed directly in dir, in lexicographic order.
// Subdirectories are not searched.
func Discover(dir string) ([]string, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list %q", dir)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Mode().IsRegular() || !strings.HasSuffix(entry.Name(), DefinitionExtension) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// IsDefinitionFile checks if path points to a regular file with definition extension.
func IsDefinitionFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && strings.HasSuffix(path, DefinitionExtension)
}
