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

package fs

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReadTail(t *testing.T) {
	Convey("While reading tail of a file", t, func() {
		dir, err := ioutil.TempDir("", "tail")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, "stdout")
		So(ioutil.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0644), ShouldBeNil)

		Convey("Only the requested number of last lines should be returned", func() {
			tail, err := ReadTail(path, 2)
			So(err, ShouldBeNil)
			So(tail, ShouldEqual, "three\nfour\n")
		})

		Convey("Whole file should be returned when it is shorter than requested tail", func() {
			tail, err := ReadTail(path, 10)
			So(err, ShouldBeNil)
			So(tail, ShouldEqual, "one\ntwo\nthree\nfour\n")
		})

		Convey("Empty file should give empty tail", func() {
			empty := filepath.Join(dir, "stderr")
			So(ioutil.WriteFile(empty, nil, 0644), ShouldBeNil)
			tail, err := ReadTail(empty, 3)
			So(err, ShouldBeNil)
			So(tail, ShouldBeEmpty)
		})

		Convey("Missing file should give an error", func() {
			_, err := ReadTail(filepath.Join(dir, "missing"), 3)
			So(err, ShouldNotBeNil)
		})
	})
}
