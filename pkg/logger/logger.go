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

package logger

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TimestampFormat is used by every log line.
const TimestampFormat = "2006-01-02 15:04:05.100"

// Initialize configures logrus with given level. When logFilePath is not empty
// logs go to both stderr and that file. Returned function closes the log file.
func Initialize(level logrus.Level, logFilePath string) (func(), error) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: TimestampFormat})
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)

	if logFilePath == "" {
		return func() {}, nil
	}

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return func() {}, errors.Wrapf(err, "cannot open log file %q", logFilePath)
	}
	logrus.SetOutput(io.MultiWriter(logFile, os.Stderr))

	return func() {
		logrus.SetOutput(os.Stderr)
		logFile.Close()
	}, nil
}

// IsDebug tells whether debug messages are currently logged.
func IsDebug(level logrus.Level) bool {
	return level >= logrus.DebugLevel
}
