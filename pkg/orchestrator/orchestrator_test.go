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

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ajorgensen/heron/pkg/launch"
	"github.com/ajorgensen/heron/pkg/launch/mocks"
	"github.com/ajorgensen/heron/pkg/layout"
	"github.com/ajorgensen/heron/pkg/metadata"
	"github.com/ajorgensen/heron/pkg/topology"
	"github.com/ajorgensen/heron/pkg/workspace"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"
)

const (
	topologyClass = "com.example.WordCountTopology"
	reportLine    = `{"topology_name":"%s","containers":{"1":{"cpu":1,"ram":1073741824,"disk":2147483648}},"totals":{"cpu":2,"ram":2147483648,"disk":3221225472}}`
)

func isGeneration(request launch.InvocationRequest) bool {
	return request.EntryPoint == topologyClass
}

func isResources(request launch.InvocationRequest) bool {
	return request.EntryPoint == ResourcesEntryPoint
}

// writeDefinitions returns launch callback which writes definitions of named topologies
// into the directory given in launcher options.
func writeDefinitions(names ...string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		request := args.Get(1).(launch.InvocationRequest)
		dir := request.Options[DefinitionDirOption]
		for _, name := range names {
			definition := topology.Definition{ID: name + "-id", Name: name, State: topology.Running}
			if err := ioutil.WriteFile(filepath.Join(dir, name+topology.DefinitionExtension), definition.Marshal(), 0644); err != nil {
				panic(err)
			}
		}
	}
}

type recorder struct {
	mu    sync.Mutex
	ids   []string
	kinds []string
	err   error
}

func (r *recorder) RecordMap(m map[string]string, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind+":"+m["topology_name"])
	return r.err
}

func TestOrchestrator(t *testing.T) {
	logrus.SetLevel(logrus.PanicLevel)

	Convey("While describing resources", t, func() {
		base, err := ioutil.TempDir("", "orchestrator")
		So(err, ShouldBeNil)
		defer os.RemoveAll(base)

		workspacesDir := filepath.Join(base, "workspaces")
		So(os.Mkdir(workspacesDir, 0755), ShouldBeNil)
		workspaceCount := func() int {
			entries, err := ioutil.ReadDir(workspacesDir)
			So(err, ShouldBeNil)
			return len(entries)
		}

		level := logrus.InfoLevel
		var report bytes.Buffer
		config := Config{
			Layout:       layout.New("/opt/heron"),
			Workspaces:   workspace.NewManager(workspacesDir),
			ReportWriter: &report,
			LogLevel:     func() logrus.Level { return level },
		}
		launcher := new(mocks.Launcher)

		request := Request{
			TopologyFile:  "/home/user/word-count.jar",
			TopologyClass: topologyClass,
			Properties:    map[string]string{"key": "value"},
			ExtraArgs:     []string{"word-count"},
			InitialState:  topology.Paused,
			Cluster:       Cluster{ConfigPath: "/opt/heron/conf/local", OverrideConfigFile: "/tmp/override.yaml"},
			InvocationID:  "test-invocation",
		}

		var mu sync.Mutex
		var generationRequests, resourcesRequests []launch.InvocationRequest
		var workspaceExisted []bool
		track := func(requests *[]launch.InvocationRequest, dir func(launch.InvocationRequest) string) func(mock.Arguments) {
			return func(args mock.Arguments) {
				mu.Lock()
				defer mu.Unlock()
				request := args.Get(1).(launch.InvocationRequest)
				*requests = append(*requests, request)
				_, err := os.Stat(dir(request))
				workspaceExisted = append(workspaceExisted, err == nil)
			}
		}
		generationDir := func(request launch.InvocationRequest) string {
			return request.Options[DefinitionDirOption]
		}
		definitionDir := func(request launch.InvocationRequest) string {
			for i, arg := range request.Args {
				if arg == "--topology_defn" {
					return filepath.Dir(request.Args[i+1])
				}
			}
			return ""
		}

		expectGeneration := func(names ...string) *mock.Call {
			return launcher.On("Launch", mock.Anything, mock.MatchedBy(isGeneration)).
				Run(func(args mock.Arguments) {
					track(&generationRequests, generationDir)(args)
					writeDefinitions(names...)(args)
				})
		}
		resourcesResult := func(args mock.Arguments) {
			track(&resourcesRequests, definitionDir)(args)
		}
		expectResources := func() *mock.Call {
			return launcher.On("Launch", mock.Anything, mock.MatchedBy(isResources)).Run(resourcesResult)
		}

		Convey("Two definitions should be described in order (scenario C)", func() {
			expectGeneration("b-topology", "a-topology").Return(launch.Result{}, nil).Once()
			expectResources().Return(func(_ context.Context, r launch.InvocationRequest) launch.Result {
				name := filepath.Base(r.Args[7])
				return launch.Result{Stdout: "log line\n" + fmt.Sprintf(reportLine, name[:len(name)-len(".defn")]) + "\n"}
			}, nil).Twice()

			o := New(launcher, config)
			ok, err := o.SubmitAndDescribeResources(context.Background(), request)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			launcher.AssertNumberOfCalls(t, "Launch", 3)
			So(workspaceCount(), ShouldEqual, 0)
			So(workspaceExisted, ShouldResemble, []bool{true, true, true})

			Convey("Generation should get workspace and initial state in options", func() {
				generation := generationRequests[0]
				So(generation.Options[InitialStateOption], ShouldEqual, "PAUSED")
				So(filepath.Dir(generation.Options[DefinitionDirOption]), ShouldEqual, workspacesDir)
				So(generation.ExtraResources, ShouldResemble, []string{"/home/user/word-count.jar"})
				So(generation.Classpath, ShouldResemble, []string{"/opt/heron/lib/third_party/*"})
				So(generation.Args, ShouldResemble, []string{"word-count"})
				So(generation.Defines, ShouldResemble, map[string]string{"key": "value"})
				So(generation.Timeout, ShouldEqual, DefaultGenerationTimeout)
			})

			Convey("Resources should be computed once per definition with distinct paths", func() {
				So(resourcesRequests, ShouldHaveLength, 2)
				dir := generationRequests[0].Options[DefinitionDirOption]
				So(resourcesRequests[0].Args, ShouldResemble, []string{
					"--config_path", "/opt/heron/conf/local",
					"--heron_home", "/opt/heron",
					"--override_config_file", "/tmp/override.yaml",
					"--topology_defn", filepath.Join(dir, "a-topology.defn"),
					"--release_file", "/opt/heron/release.yaml",
				})
				So(resourcesRequests[1].Args[7], ShouldEqual, filepath.Join(dir, "b-topology.defn"))
				for _, r := range resourcesRequests {
					So(r.Classpath, ShouldResemble, []string{
						"/opt/heron/lib/scheduler/*",
						"/opt/heron/lib/statemgr/*",
						"/opt/heron/lib/packing/*",
					})
					So(r.Timeout, ShouldEqual, DefaultResourcesTimeout)
				}
			})

			Convey("Reports should be rendered", func() {
				So(report.String(), ShouldContainSubstring, "a-topology")
				So(report.String(), ShouldContainSubstring, "b-topology")
			})
		})

		Convey("Reports should be returned and recorded", func() {
			rec := &recorder{}
			config.NewRecorder = func(id string) (metadata.Recorder, error) {
				rec.ids = append(rec.ids, id)
				return rec, nil
			}
			expectGeneration("wc").Return(launch.Result{}, nil).Once()
			expectResources().Return(launch.Result{Stdout: fmt.Sprintf(reportLine, "wc")}, nil).Once()

			reports, err := New(launcher, config).DescribeResources(context.Background(), request)
			So(err, ShouldBeNil)
			So(reports, ShouldHaveLength, 1)
			So(reports[0].TopologyName, ShouldEqual, "wc")
			So(reports[0].Totals.CPU.String(), ShouldEqual, "2")
			So(rec.ids, ShouldResemble, []string{"test-invocation"})
			So(rec.kinds, ShouldResemble, []string{metadata.KindResources + ":wc"})
		})

		Convey("Undecodable report or failing recorder should not fail the invocation", func() {
			config.NewRecorder = func(string) (metadata.Recorder, error) {
				return &recorder{err: errors.New("database is down")}, nil
			}
			expectGeneration("wc", "other").Return(launch.Result{}, nil).Once()
			expectResources().Return(launch.Result{Stdout: "no report here"}, nil).Once()
			expectResources().Return(launch.Result{Stdout: fmt.Sprintf(reportLine, "wc")}, nil).Once()

			reports, err := New(launcher, config).DescribeResources(context.Background(), request)
			So(err, ShouldBeNil)
			So(reports, ShouldHaveLength, 1)
		})

		Convey("Verbose flag should be passed in debug level only", func() {
			level = logrus.DebugLevel
			expectGeneration("wc").Return(launch.Result{}, nil).Once()
			expectResources().Return(launch.Result{}, nil).Once()

			ok, err := New(launcher, config).SubmitAndDescribeResources(context.Background(), request)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			args := resourcesRequests[0].Args
			So(args[len(args)-1], ShouldEqual, "--verbose")
			So(args, ShouldHaveLength, 11)
		})

		Convey("Conf dir of heron home should be used when cluster config path is not given", func() {
			request.Cluster.ConfigPath = ""
			expectGeneration("wc").Return(launch.Result{}, nil).Once()
			expectResources().Return(launch.Result{}, nil).Once()

			_, err := New(launcher, config).SubmitAndDescribeResources(context.Background(), request)
			So(err, ShouldBeNil)
			So(resourcesRequests[0].Args[1], ShouldEqual, "/opt/heron/conf")
		})

		Convey("Failed generation should not compute resources (scenario A)", func() {
			expectGeneration().Return(launch.Result{ExitCode: 1}, errors.New("exit code 1")).Once()

			ok, err := New(launcher, config).SubmitAndDescribeResources(context.Background(), request)
			So(ok, ShouldBeFalse)
			var generationErr *TopologyGenerationError
			So(errors.As(err, &generationErr), ShouldBeTrue)
			So(generationErr.TopologyClass, ShouldEqual, topologyClass)
			So(err.Error(), ShouldContainSubstring, "exit code 1")
			launcher.AssertNumberOfCalls(t, "Launch", 1)
			So(workspaceCount(), ShouldEqual, 0)
		})

		Convey("Generation without definitions should fail (scenario B)", func() {
			expectGeneration().Return(launch.Result{}, nil).Once()

			ok, err := New(launcher, config).SubmitAndDescribeResources(context.Background(), request)
			So(ok, ShouldBeFalse)
			var noArtifacts *NoArtifactsError
			So(errors.As(err, &noArtifacts), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "no topologies found")
			launcher.AssertNumberOfCalls(t, "Launch", 1)
			So(workspaceCount(), ShouldEqual, 0)
		})

		Convey("Failed resource computation should stop the invocation (scenario D)", func() {
			expectGeneration("a", "b", "c").Return(launch.Result{}, nil).Once()
			expectResources().Return(launch.Result{}, nil).Once()
			expectResources().Return(launch.Result{ExitCode: 1}, errors.New("exit code 1")).Once()

			ok, err := New(launcher, config).SubmitAndDescribeResources(context.Background(), request)
			So(ok, ShouldBeFalse)
			var computationErr *ResourceComputationError
			So(errors.As(err, &computationErr), ShouldBeTrue)
			So(filepath.Base(computationErr.Artifact), ShouldEqual, "b.defn")
			launcher.AssertNumberOfCalls(t, "Launch", 3)
			So(workspaceCount(), ShouldEqual, 0)
		})

		Convey("Malformed definition should stop the invocation", func() {
			launcher.On("Launch", mock.Anything, mock.MatchedBy(isGeneration)).Run(func(args mock.Arguments) {
				dir := args.Get(1).(launch.InvocationRequest).Options[DefinitionDirOption]
				ioutil.WriteFile(filepath.Join(dir, "broken.defn"), []byte{0xff, 0xff, 0xff}, 0644)
			}).Return(launch.Result{}, nil).Once()

			_, err := New(launcher, config).SubmitAndDescribeResources(context.Background(), request)
			var parseErr *topology.ParseError
			So(errors.As(err, &parseErr), ShouldBeTrue)
			launcher.AssertNumberOfCalls(t, "Launch", 1)
			So(workspaceCount(), ShouldEqual, 0)
		})

		Convey("Cancelled context should be passed to the launcher", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			launcher.On("Launch", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() != nil }), mock.Anything).
				Return(launch.Result{ExitCode: -1}, context.Canceled).Once()

			_, err := New(launcher, config).SubmitAndDescribeResources(ctx, request)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(workspaceCount(), ShouldEqual, 0)
		})

		Convey("Missing topology class should fail before workspace is created", func() {
			request.TopologyClass = ""
			_, err := New(launcher, config).SubmitAndDescribeResources(context.Background(), request)
			So(err, ShouldNotBeNil)
			launcher.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
		})

		Convey("Workspace creation failure should be returned", func() {
			config.Workspaces = workspace.NewManager(filepath.Join(base, "missing"))
			_, err := New(launcher, config).SubmitAndDescribeResources(context.Background(), request)
			var creationErr *workspace.CreationError
			So(errors.As(err, &creationErr), ShouldBeTrue)
		})

		Convey("When workspace cannot be removed", func() {
			removeErr := errors.New("device busy")
			config.Workspaces = config.Workspaces.WithRemover(func(path string) error {
				os.RemoveAll(path)
				return removeErr
			})

			Convey("Cleanup error should not hide generation error", func() {
				expectGeneration().Return(launch.Result{}, errors.New("exit code 1")).Once()

				_, err := New(launcher, config).SubmitAndDescribeResources(context.Background(), request)
				var generationErr *TopologyGenerationError
				So(errors.As(err, &generationErr), ShouldBeTrue)
			})

			Convey("Cleanup error should be returned after success", func() {
				expectGeneration("wc").Return(launch.Result{}, nil).Once()
				expectResources().Return(launch.Result{}, nil).Once()

				ok, err := New(launcher, config).SubmitAndDescribeResources(context.Background(), request)
				So(ok, ShouldBeFalse)
				var cleanupErr *workspace.CleanupError
				So(errors.As(err, &cleanupErr), ShouldBeTrue)
			})
		})
	})
}

func TestConcurrentInvocations(t *testing.T) {
	logrus.SetLevel(logrus.PanicLevel)

	Convey("Concurrent invocations should use distinct workspaces", t, func() {
		launcher := new(mocks.Launcher)
		var mu sync.Mutex
		dirs := map[string]bool{}
		launcher.On("Launch", mock.Anything, mock.MatchedBy(isGeneration)).Run(func(args mock.Arguments) {
			dir := args.Get(1).(launch.InvocationRequest).Options[DefinitionDirOption]
			mu.Lock()
			dirs[dir] = true
			mu.Unlock()
			writeDefinitions("wc")(args)
		}).Return(launch.Result{}, nil)
		launcher.On("Launch", mock.Anything, mock.MatchedBy(isResources)).Return(launch.Result{}, nil)

		o := New(launcher, Config{Layout: layout.New("/opt/heron"), Workspaces: workspace.NewManager("")})

		const invocations = 8
		var wg sync.WaitGroup
		errs := make(chan error, invocations)
		for i := 0; i < invocations; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := o.SubmitAndDescribeResources(context.Background(), Request{TopologyClass: topologyClass})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			So(err, ShouldBeNil)
		}
		So(dirs, ShouldHaveLength, invocations)
		for dir := range dirs {
			_, err := os.Stat(dir)
			So(os.IsNotExist(err), ShouldBeTrue)
		}
	})
}
