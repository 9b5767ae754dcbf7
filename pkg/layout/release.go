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

package layout

import (
	"fmt"
	"io/ioutil"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// Release keeps build information of a heron installation.
type Release struct {
	Version     string
	Time        string
	Timestamp   string
	Host        string
	User        string
	GitRevision string
	GitStatus   string
}

// ReadRelease parses the release file of the installation.
func (l Layout) ReadRelease() (Release, error) {
	return ReadReleaseFile(l.ReleaseFile())
}

// ReadReleaseFile parses release file at given path. Values may be scalars of any type,
// e.g. the build timestamp is a number.
func ReadReleaseFile(path string) (Release, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return Release{}, errors.Wrapf(err, "cannot read release file %q", path)
	}

	values := map[string]interface{}{}
	if err := yaml.Unmarshal(content, &values); err != nil {
		return Release{}, errors.Wrapf(err, "cannot parse release file %q", path)
	}

	get := func(key string) string {
		value, ok := values[key]
		if !ok || value == nil {
			return ""
		}
		return fmt.Sprint(value)
	}

	return Release{
		Version:     get("heron.build.version"),
		Time:        get("heron.build.time"),
		Timestamp:   get("heron.build.timestamp"),
		Host:        get("heron.build.host"),
		User:        get("heron.build.user"),
		GitRevision: get("heron.build.git.revision"),
		GitStatus:   get("heron.build.git.status"),
	}, nil
}
