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

package launch

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ajorgensen/heron/pkg/executor"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// HeronOptionsProperty is the system property carrying launcher options.
	HeronOptionsProperty = "heron.options"
	// DefaultMaxHeap is the JVM heap limit of launched entry points.
	DefaultMaxHeap = "1g"
	// DefaultTimeout bounds launches which do not specify their own timeout.
	DefaultTimeout = 10 * time.Minute

	classpathSeparator = ":"
	// Heron decodes this sequence back into a space.
	optionSpaceEscape = "%%%%"
)

// JavaConfig configures JVM launches.
type JavaConfig struct {
	JavaBin string
	MaxHeap string
	Timeout time.Duration
}

// DefaultJavaConfig returns config with java taken from JAVA_HOME, or PATH when JAVA_HOME is not set.
func DefaultJavaConfig() JavaConfig {
	return JavaConfig{
		JavaBin: DefaultJavaBin(),
		MaxHeap: DefaultMaxHeap,
		Timeout: DefaultTimeout,
	}
}

// DefaultJavaBin returns $JAVA_HOME/bin/java or java.
func DefaultJavaBin() string {
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		return filepath.Join(javaHome, "bin", "java")
	}
	return "java"
}

// Java launches entry points in a JVM through an Executor.
type Java struct {
	executor executor.Executor
	config   JavaConfig
}

// NewJava returns Java launcher.
func NewJava(executor executor.Executor, config JavaConfig) Java {
	if config.JavaBin == "" {
		config.JavaBin = DefaultJavaBin()
	}
	if config.MaxHeap == "" {
		config.MaxHeap = DefaultMaxHeap
	}
	return Java{executor: executor, config: config}
}

// Command returns full command line for the request, java binary included:
// java -client -Xmx<heap> -Dheron.options=<options> [-D<define>...] -cp <classpath> <entry point> <args...>
func (j Java) Command(request InvocationRequest) []string {
	argv := []string{
		j.config.JavaBin,
		"-client",
		"-Xmx" + j.config.MaxHeap,
		"-D" + HeronOptionsProperty + "=" + EncodeOptions(request.Options),
	}

	for _, key := range sortedKeys(request.Defines) {
		argv = append(argv, fmt.Sprintf("-D%s=%s", key, request.Defines[key]))
	}

	argv = append(argv, "-cp", Classpath(request.ExtraResources, request.Classpath))
	argv = append(argv, request.EntryPoint)
	argv = append(argv, request.Args...)
	return argv
}

// Launch runs the request and waits for the JVM to exit.
func (j Java) Launch(ctx context.Context, request InvocationRequest) (Result, error) {
	if request.EntryPoint == "" {
		return Result{}, errors.New("entry point is not given")
	}

	timeout := request.Timeout
	if timeout == 0 {
		timeout = j.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	argv := j.Command(request)
	command := executor.CommandString(argv[0], argv[1:]...)
	logrus.Debugf("launch: %s", command)

	handle, err := j.executor.Execute(ctx, argv[0], argv[1:]...)
	if err != nil {
		return Result{ExitCode: -1}, errors.Wrapf(err, "cannot launch %s", request.EntryPoint)
	}
	defer handle.Clean()

	handle.Wait(0)

	if interrupted := handle.Interrupted(); interrupted != nil {
		executor.LogUnsucessfulExecution(command, j.executor.Name(), handle)
		if errors.Is(interrupted, context.DeadlineExceeded) {
			return Result{ExitCode: -1}, errors.Wrapf(interrupted, "%s did not finish within %s", request.EntryPoint, timeout)
		}
		return Result{ExitCode: -1}, errors.Wrapf(interrupted, "%s was stopped", request.EntryPoint)
	}

	exitCode, _ := handle.ExitCode()
	result := Result{ExitCode: exitCode}

	// Output of failed launches is kept for inspection, see the log for its location.
	if err := executor.CheckExitCode(command, j.executor.Name(), handle); err != nil {
		return result, errors.Wrapf(err, "%s failed", request.EntryPoint)
	}

	result.Stdout, err = readStdout(handle)
	if err != nil {
		return result, errors.Wrapf(err, "cannot read output of %s", request.EntryPoint)
	}

	if err := handle.EraseOutput(); err != nil {
		logrus.Warnf("launch: %v", err)
	}

	return result, nil
}

func readStdout(handle executor.TaskHandle) (string, error) {
	file, err := handle.StdoutFile()
	if err != nil {
		return "", err
	}
	defer file.Close()

	content, err := ioutil.ReadAll(file)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// EncodeOptions encodes launcher options as comma separated key=value pairs sorted by key.
func EncodeOptions(options map[string]string) string {
	pairs := make([]string, 0, len(options))
	for _, key := range sortedKeys(options) {
		pairs = append(pairs, key+"="+options[key])
	}
	return strings.Replace(strings.Join(pairs, ","), " ", optionSpaceEscape, -1)
}

// Classpath joins extra resources and classpath entries, extra resources first.
// Repeated entries are listed once.
func Classpath(extra []string, classpath []string) string {
	seen := map[string]bool{}
	entries := make([]string, 0, len(extra)+len(classpath))
	for _, entry := range append(append([]string(nil), extra...), classpath...) {
		if entry == "" || seen[entry] {
			continue
		}
		seen[entry] = true
		entries = append(entries, entry)
	}
	return strings.Join(entries, classpathSeparator)
}

// ParseDefines turns key=value strings into a map. Value may be empty, key may not.
func ParseDefines(defines []string) (map[string]string, error) {
	parsed := map[string]string{}
	for _, define := range defines {
		parts := strings.SplitN(define, "=", 2)
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return nil, errors.Errorf("invalid property %q: key is empty", define)
		}
		value := ""
		if len(parts) == 2 {
			value = parts[1]
		}
		parsed[key] = value
	}
	return parsed, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
