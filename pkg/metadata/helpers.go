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
	"io/ioutil"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ajorgensen/heron/pkg/conf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const kernelReleaseFile = "/proc/sys/kernel/osrelease"

// RecordRuntimeEnv stores launcher configuration, HERON_ environment and host details.
func RecordRuntimeEnv(recorder Recorder, start time.Time) error {
	if err := recorder.RecordMap(conf.GetFlags(), KindFlags); err != nil {
		return err
	}

	if err := recorder.RecordMap(environ(conf.EnvironmentPrefix+"_"), KindEnviron); err != nil {
		return err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return errors.Wrap(err, "cannot retrieve hostname")
	}
	if err := recorder.RecordMap(map[string]string{"time": start.Format(time.RFC822Z), "host": hostname}, KindEmpty); err != nil {
		return err
	}

	return recorder.RecordMap(PlatformMetrics(), KindPlatform)
}

// environ returns environment variables starting with prefix.
func environ(prefix string) map[string]string {
	variables := map[string]string{}
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, prefix) {
			fields := strings.SplitN(env, "=", 2)
			variables[fields[0]] = fields[1]
		}
	}
	return variables
}

// PlatformMetrics returns basic description of the platform.
// Values which cannot be retrieved are empty.
func PlatformMetrics() map[string]string {
	kernel, err := ioutil.ReadFile(kernelReleaseFile)
	if err != nil {
		logrus.Warnf("PlatformMetrics: cannot read kernel version: %v", err)
	}
	return map[string]string{
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
		"cpus":           strconv.Itoa(runtime.NumCPU()),
		"kernel_version": strings.TrimSpace(string(kernel)),
	}
}
