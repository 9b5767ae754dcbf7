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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ajorgensen/heron/pkg/conf"
	"github.com/ajorgensen/heron/pkg/executor"
	"github.com/ajorgensen/heron/pkg/launch"
	"github.com/ajorgensen/heron/pkg/layout"
	"github.com/ajorgensen/heron/pkg/logger"
	"github.com/ajorgensen/heron/pkg/metadata"
	"github.com/ajorgensen/heron/pkg/orchestrator"
	"github.com/ajorgensen/heron/pkg/topology"
	"github.com/ajorgensen/heron/pkg/utils/errutil"
	"github.com/ajorgensen/heron/pkg/workspace"
	"github.com/sirupsen/logrus"
)

var (
	heronHomeFlag          = conf.NewStringFlag("heron_home", "Heron installation directory", layout.DefaultHome())
	configPathFlag         = conf.NewStringFlag("config_path", "Cluster configuration directory, conf directory of heron home when empty", "")
	overrideConfigFileFlag = conf.NewStringFlag("override_config_file", "File with properties overriding cluster configuration", "")
	javaBinFlag            = conf.NewStringFlag("java_bin", "Java binary", launch.DefaultJavaBin())
	javaHeapFlag           = conf.NewStringFlag("java_heap", "Maximum heap of launched JVMs", launch.DefaultMaxHeap)
	propertiesFlag         = conf.NewSliceFlag("topology_main_jvm_property", "System property key=value passed to topology main class. Can be given many times")
	initialStateFlag       = conf.NewStringFlag("initial_state", "Initial state of submitted topologies: RUNNING or PAUSED", string(topology.Running))
	generationTimeoutFlag  = conf.NewDurationFlag("generation_timeout", "Time limit of topology main class", orchestrator.DefaultGenerationTimeout)
	resourcesTimeoutFlag   = conf.NewDurationFlag("resources_timeout", "Time limit of resource computation of a single topology", orchestrator.DefaultResourcesTimeout)
	workspaceDirFlag       = conf.NewStringFlag("workspace_dir", "Directory for topology definition workspaces, system temporary directory when empty", "")
	outputDirFlag          = conf.NewStringFlag("output_dir", "Directory for stdout and stderr of launched processes, system temporary directory when empty", "")
	logFileFlag            = conf.NewStringFlag("log_file", "Log file, logs go to stderr only when empty", "")

	// Names include dash to exclude them from dumping.
	dumpConfigFlag             = conf.NewBoolFlag("config-dump", "Dump configuration as environment script.", false)
	dumpConfigInvocationIDFlag = conf.NewStringFlag("config-dump-invocation-id", "Dump configuration recorded by the given invocation.", "")
)

const usage = `Describes resources required by topologies submitted by a topology main class.

Usage: heron-resources [flags] <topology-file> <topology-class> [-- <topology args>...]

The topology main class writes topology definitions instead of submitting them.
Resources of each definition are then computed with the packing algorithm
configured for the cluster and printed as a table.`

// configure parses flags and handles config-dump flags.
// Note: exits when configuration dump was requested.
func configure() {
	if err := conf.ParseFlags(); err != nil {
		logrus.Errorf("Cannot parse flags: %v", err)
		os.Exit(errutil.ExUsage)
	}
	logrus.SetLevel(conf.LogLevel())

	if !dumpConfigFlag.Value() {
		return
	}

	if id := dumpConfigInvocationIDFlag.Value(); id != "" {
		store, err := metadata.NewCassandra(id, metadata.DefaultCassandraConfig())
		errutil.CheckWithContext(err, "Cannot connect to metadata store")
		defer store.Close()

		flags, err := store.GetByKind(metadata.KindFlags)
		errutil.CheckWithContext(err, "Cannot retrieve configuration of invocation "+id)
		fmt.Println(conf.DumpConfigMap(flags))
	} else {
		fmt.Println(conf.DumpConfig())
	}
	os.Exit(0)
}

// newRecorder connects to metadata store and records the runtime environment of the invocation.
func newRecorder(invocationID string) (metadata.Recorder, error) {
	store, err := metadata.NewDefault(invocationID)
	if err != nil || store == nil {
		return nil, err
	}
	if err := metadata.RecordRuntimeEnv(store, time.Now()); err != nil {
		return nil, err
	}
	logrus.Infof("Recording metadata of invocation %s", invocationID)
	return store, nil
}

func main() {
	conf.SetAppName("heron-resources")
	conf.SetHelp(usage)
	configure()

	closeLog, err := logger.Initialize(conf.LogLevel(), logFileFlag.Value())
	errutil.CheckWithContext(err, "Cannot initialize logging")
	defer closeLog()

	args := conf.Args()
	if len(args) < 2 {
		logrus.Errorf("Topology file and topology class are required\n\n%s", usage)
		os.Exit(errutil.ExUsage)
	}

	properties, err := launch.ParseDefines(propertiesFlag.Value())
	errutil.CheckWithExitCode(err, "Invalid topology property", errutil.ExUsage)

	request := orchestrator.Request{
		TopologyFile:  args[0],
		TopologyClass: args[1],
		Properties:    properties,
		ExtraArgs:     args[2:],
		InitialState:  topology.InitialState(strings.ToUpper(initialStateFlag.Value())),
		Cluster: orchestrator.Cluster{
			ConfigPath:         configPathFlag.Value(),
			OverrideConfigFile: overrideConfigFileFlag.Value(),
		},
	}

	java := launch.NewJava(executor.NewLocal(outputDirFlag.Value()), launch.JavaConfig{
		JavaBin: javaBinFlag.Value(),
		MaxHeap: javaHeapFlag.Value(),
	})

	config := orchestrator.DefaultConfig()
	config.Layout = layout.New(heronHomeFlag.Value())
	config.Workspaces = workspace.NewManager(workspaceDirFlag.Value())
	config.GenerationTimeout = generationTimeoutFlag.Value()
	config.ResourcesTimeout = resourcesTimeoutFlag.Value()
	config.ReportWriter = os.Stdout
	config.NewRecorder = newRecorder

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = orchestrator.New(java, config).SubmitAndDescribeResources(ctx, request)
	errutil.CheckWithContext(err, "Cannot describe resources of topologies")
}
