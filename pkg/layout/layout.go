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

// Package layout resolves locations inside a heron installation: library
// directories of resource groups, configuration and the release file.
package layout

import (
	"os"
	"path/filepath"
)

// Group is a named set of libraries needed by an entry point.
type Group string

const (
	// Topology libraries are needed to run user topology main class.
	Topology Group = "topology"
	// Scheduler libraries.
	Scheduler Group = "scheduler"
	// StateManager libraries.
	StateManager Group = "statemgr"
	// Packing libraries compute packing plans.
	Packing Group = "packing"
	// Uploader libraries.
	Uploader Group = "uploader"
)

// groupDirs maps groups to directories under lib.
var groupDirs = map[Group]string{
	Topology:     "third_party",
	Scheduler:    "scheduler",
	StateManager: "statemgr",
	Packing:      "packing",
	Uploader:     "uploader",
}

const (
	// DefaultHomeDirName is used under user home when heron home is not given.
	DefaultHomeDirName = ".heron"
	// ReleaseFileName is the name of build information file in heron home.
	ReleaseFileName = "release.yaml"
)

// Layout describes heron installation placed in Home directory.
type Layout struct {
	Home string
}

// New returns Layout for given home. Empty home means ~/.heron.
func New(home string) Layout {
	if home == "" {
		home = DefaultHome()
	}
	return Layout{Home: home}
}

// DefaultHome returns ~/.heron or .heron in working directory when user home is unknown.
func DefaultHome() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return DefaultHomeDirName
	}
	return filepath.Join(userHome, DefaultHomeDirName)
}

// LibDir returns directory with heron libraries.
func (l Layout) LibDir() string {
	return filepath.Join(l.Home, "lib")
}

// ConfDir returns default directory with cluster configuration.
func (l Layout) ConfDir() string {
	return filepath.Join(l.Home, "conf")
}

// ReleaseFile returns path of the release file.
func (l Layout) ReleaseFile() string {
	return filepath.Join(l.Home, ReleaseFileName)
}

// Classpath returns classpath entries of given groups, in the order of groups.
// Every group is represented by a wildcard entry for its library directory.
// Groups given twice are listed once.
func (l Layout) Classpath(groups ...Group) []string {
	entries := make([]string, 0, len(groups))
	seen := map[Group]bool{}
	for _, group := range groups {
		if seen[group] {
			continue
		}
		seen[group] = true

		dir, ok := groupDirs[group]
		if !ok {
			dir = string(group)
		}
		entries = append(entries, filepath.Join(l.LibDir(), dir, "*"))
	}
	return entries
}
