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

// Package workspace provides scratch directories which are owned by exactly one
// operation and removed when that operation ends, whatever the outcome.
package workspace

import (
	"fmt"
	"io/ioutil"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultPrefix is a name prefix of every workspace directory.
const DefaultPrefix = "heron-defn-"

// ErrAlreadyReleased is returned when workspace is released for the second time.
var ErrAlreadyReleased = errors.New("workspace already released")

// CreationError is returned when filesystem rejects workspace creation.
type CreationError struct {
	BaseDir string
	Cause   error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("cannot create workspace in %q: %v", e.BaseDir, e.Cause)
}

// Unwrap returns the underlying filesystem error.
func (e *CreationError) Unwrap() error {
	return e.Cause
}

// CleanupError is returned when workspace could not be removed completely.
type CleanupError struct {
	Path  string
	Cause error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cannot remove workspace %q: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying filesystem error.
func (e *CleanupError) Unwrap() error {
	return e.Cause
}

// Manager creates uniquely named workspaces in a base directory.
type Manager struct {
	baseDir string
	prefix  string
	remove  func(path string) error
}

// NewManager returns a Manager creating workspaces in baseDir.
// Empty baseDir means system temporary directory.
func NewManager(baseDir string) Manager {
	return Manager{
		baseDir: baseDir,
		prefix:  DefaultPrefix,
		remove:  os.RemoveAll,
	}
}

// WithRemover returns a copy of Manager which releases workspaces with remove
// instead of os.RemoveAll.
func (m Manager) WithRemover(remove func(path string) error) Manager {
	m.remove = remove
	return m
}

// BaseDir returns directory where workspaces are created.
func (m Manager) BaseDir() string {
	if m.baseDir == "" {
		return os.TempDir()
	}
	return m.baseDir
}

// Acquire creates new empty workspace. The directory name is unique, so concurrent
// callers never share a workspace.
func (m Manager) Acquire() (*Workspace, error) {
	path, err := ioutil.TempDir(m.baseDir, m.prefix)
	if err != nil {
		return nil, &CreationError{BaseDir: m.BaseDir(), Cause: err}
	}
	logrus.Debugf("workspace: created %q", path)

	remove := m.remove
	if remove == nil {
		remove = os.RemoveAll
	}
	return &Workspace{path: path, remove: remove}, nil
}

// With acquires a workspace, passes it to fn and releases it when fn returns or panics.
// Error returned by fn always wins. Cleanup failure is only logged then; otherwise
// it becomes the returned error.
func (m Manager) With(fn func(ws *Workspace) error) (err error) {
	ws, err := m.Acquire()
	if err != nil {
		return err
	}

	defer func() {
		cleanupErr := ws.Release()
		if cleanupErr == nil {
			return
		}
		if err != nil {
			logrus.Errorf("workspace: %v (while handling: %v)", cleanupErr, err)
			return
		}
		err = cleanupErr
	}()

	return fn(ws)
}

// Workspace is a scratch directory owned by a single operation.
type Workspace struct {
	path   string
	remove func(path string) error

	mu       sync.Mutex
	released bool
}

// Path returns absolute path of the workspace directory.
func (w *Workspace) Path() string {
	return w.path
}

// Release removes the workspace with all its content.
// It must be called exactly once; following calls return ErrAlreadyReleased.
func (w *Workspace) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released {
		return errors.Wrapf(ErrAlreadyReleased, "workspace %q", w.path)
	}
	w.released = true

	if err := w.remove(w.path); err != nil {
		return &CleanupError{Path: w.path, Cause: err}
	}
	logrus.Debugf("workspace: removed %q", w.path)
	return nil
}
