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

package metadata

import (
	"github.com/ajorgensen/heron/pkg/conf"
	"github.com/pkg/errors"
)

// Predefined kinds of metadata.
// Kind groups metadata of a single invocation by their common characteristics,
// e.g. flags passed to the launcher, HERON_ environment or computed resources.
const (
	KindEmpty     = ""
	KindFlags     = "flags"
	KindEnviron   = "environ"
	KindPlatform  = "platform"
	KindResources = "resources"
)

// MetadataFlag enables recording of invocation metadata.
var MetadataFlag = conf.NewBoolFlag("metadata", "Record invocation metadata and computed resources in Cassandra", false)

// Recorder stores metadata maps.
type Recorder interface {
	// RecordMap stores a key and value map and associates it with the invocation id.
	RecordMap(metadata map[string]string, kind string) error
}

// Metadata interface defines methods which must be supported by DB backend.
type Metadata interface {
	Recorder
	// Record stores a key and value and associates it with the invocation id.
	Record(key string, value string, kind string) error
	// GetByKind retrieves single metadata kind from the database.
	// Returns error if no kind or too many groups found.
	GetByKind(kind string) (map[string]string, error)
	// Clear deletes all metadata entries associated with the current invocation id.
	Clear() error
}

// NewDefault returns metadata store configured via flags or nil when recording is disabled.
func NewDefault(invocationID string) (Metadata, error) {
	if !MetadataFlag.Value() {
		return nil, nil
	}
	metadata, err := NewCassandra(invocationID, DefaultCassandraConfig())
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to metadata store")
	}
	return metadata, nil
}
