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

// Package orchestrator runs the two phases of describing topology resources:
// the user topology main class writes topology definitions into a scratch workspace,
// then resources of every definition are computed by the packing algorithm.
package orchestrator

import (
	"context"
	"io"
	"time"

	"github.com/ajorgensen/heron/pkg/launch"
	"github.com/ajorgensen/heron/pkg/layout"
	"github.com/ajorgensen/heron/pkg/logger"
	"github.com/ajorgensen/heron/pkg/metadata"
	"github.com/ajorgensen/heron/pkg/resources"
	"github.com/ajorgensen/heron/pkg/topology"
	"github.com/ajorgensen/heron/pkg/workspace"
	"github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// ResourcesEntryPoint computes resources of a single topology definition.
	ResourcesEntryPoint = "com.twitter.heron.scheduler.ResourcesMain"

	// DefinitionDirOption tells topology submitter where to write definitions.
	DefinitionDirOption = "cmdline.topologydefn.tmpdirectory"
	// InitialStateOption is the state of submitted topologies.
	InitialStateOption = "cmdline.topology.initial.state"

	// DefaultGenerationTimeout bounds the run of topology main class.
	DefaultGenerationTimeout = 10 * time.Minute
	// DefaultResourcesTimeout bounds resource computation of a single topology.
	DefaultResourcesTimeout = 5 * time.Minute
)

// Cluster points to cluster configuration.
type Cluster struct {
	// ConfigPath is the cluster configuration directory. Empty means conf dir of heron home.
	ConfigPath string
	// OverrideConfigFile holds properties overriding cluster configuration.
	OverrideConfigFile string
}

// Request describes a single invocation.
type Request struct {
	// TopologyFile is the user jar (or other artifact) holding TopologyClass.
	TopologyFile string
	// TopologyClass is the main class submitting topologies.
	TopologyClass string
	// Properties are passed to the topology main class as system properties.
	Properties map[string]string
	// ExtraArgs are passed to the topology main class.
	ExtraArgs []string
	// InitialState is passed to topology submitter as is.
	InitialState topology.InitialState
	Cluster      Cluster
	// InvocationID tags logs and metadata. Generated when empty.
	InvocationID string
}

// RecorderFactory returns recorder of the given invocation. Nil recorder disables recording.
type RecorderFactory func(invocationID string) (metadata.Recorder, error)

// Config of Orchestrator.
type Config struct {
	Layout     layout.Layout
	Workspaces workspace.Manager

	// Zero timeouts mean defaults.
	GenerationTimeout time.Duration
	ResourcesTimeout  time.Duration

	// Reports are rendered here when set.
	ReportWriter io.Writer
	// NewRecorder is optional.
	NewRecorder RecorderFactory
	// LogLevel decides whether resource computation runs verbose. Defaults to logrus.GetLevel.
	LogLevel func() logrus.Level
}

// DefaultConfig returns config with default heron home and workspaces in the system temporary directory.
func DefaultConfig() Config {
	return Config{
		Layout:            layout.New(layout.DefaultHome()),
		Workspaces:        workspace.NewManager(""),
		GenerationTimeout: DefaultGenerationTimeout,
		ResourcesTimeout:  DefaultResourcesTimeout,
		LogLevel:          logrus.GetLevel,
	}
}

// Orchestrator describes resources of topologies. It keeps no state between invocations,
// so it can be used concurrently.
type Orchestrator struct {
	launcher launch.Launcher
	config   Config
}

// New returns Orchestrator launching both phases with launcher.
func New(launcher launch.Launcher, config Config) *Orchestrator {
	if config.GenerationTimeout == 0 {
		config.GenerationTimeout = DefaultGenerationTimeout
	}
	if config.ResourcesTimeout == 0 {
		config.ResourcesTimeout = DefaultResourcesTimeout
	}
	if config.LogLevel == nil {
		config.LogLevel = logrus.GetLevel
	}
	return &Orchestrator{launcher: launcher, config: config}
}

// SubmitAndDescribeResources returns true when resources of every topology generated
// by the request were computed. Otherwise it returns the first error.
func (o *Orchestrator) SubmitAndDescribeResources(ctx context.Context, request Request) (bool, error) {
	if _, err := o.DescribeResources(ctx, request); err != nil {
		return false, err
	}
	return true, nil
}

// DescribeResources runs topology main class and computes resources of every topology
// definition it writes, in lexicographic order of definition files. The first failure
// aborts the invocation. Returned reports omit topologies whose report could not be decoded.
func (o *Orchestrator) DescribeResources(ctx context.Context, request Request) ([]resources.Report, error) {
	if request.TopologyClass == "" {
		return nil, errors.New("topology class is not given")
	}

	if request.InvocationID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, errors.Wrap(err, "cannot generate invocation id")
		}
		request.InvocationID = id.String()
	}
	log := logrus.WithField("invocation", request.InvocationID)

	if release, err := o.config.Layout.ReadRelease(); err != nil {
		log.Debugf("Cannot read release file: %v", err)
	} else {
		log.Debugf("Heron version %s", release.Version)
	}

	inv := &invocation{
		Orchestrator: o,
		request:      request,
		log:          log,
		recorder:     o.recorder(request.InvocationID, log),
	}

	err := o.config.Workspaces.With(func(ws *workspace.Workspace) error {
		return inv.run(ctx, ws.Path())
	})
	if err != nil {
		log.Debugf("Invocation failed: %+v", err)
		return nil, err
	}
	return inv.reports, nil
}

func (o *Orchestrator) recorder(invocationID string, log *logrus.Entry) metadata.Recorder {
	if o.config.NewRecorder == nil {
		return nil
	}
	recorder, err := o.config.NewRecorder(invocationID)
	if err != nil {
		log.Warnf("Metadata will not be recorded: %v", err)
		return nil
	}
	return recorder
}

// invocation is the state of a single DescribeResources call.
type invocation struct {
	*Orchestrator
	request  Request
	log      *logrus.Entry
	recorder metadata.Recorder
	reports  []resources.Report
}

func (inv *invocation) run(ctx context.Context, dir string) error {
	inv.log.Infof("Generating topology definitions in %q", dir)
	if _, err := inv.launcher.Launch(ctx, inv.generationRequest(dir)); err != nil {
		return &TopologyGenerationError{TopologyClass: inv.request.TopologyClass, Cause: err}
	}

	paths, err := topology.Discover(dir)
	if err != nil {
		return &TopologyGenerationError{TopologyClass: inv.request.TopologyClass, Cause: err}
	}
	if len(paths) == 0 {
		return &NoArtifactsError{Dir: dir}
	}
	inv.log.Debugf("Found %d topology definitions", len(paths))

	for _, path := range paths {
		definition, err := topology.ReadFile(path)
		if err != nil {
			return err
		}

		if err := inv.describe(ctx, definition); err != nil {
			return err
		}
	}
	return nil
}

func (inv *invocation) describe(ctx context.Context, definition topology.Definition) error {
	log := inv.log.WithField("topology", definition.Name)
	log.Infof("Computing resources of topology %q (%d spouts, %d bolts)", definition.Name, len(definition.Spouts), len(definition.Bolts))

	result, err := inv.launcher.Launch(ctx, inv.resourcesRequest(definition.Path))
	if err != nil {
		return &ResourceComputationError{Artifact: definition.Path, Cause: err}
	}

	report, err := resources.Parse(result.Stdout)
	if err != nil {
		log.Warnf("Cannot decode resources of topology %q: %v", definition.Name, err)
		return nil
	}
	inv.reports = append(inv.reports, report)

	if inv.config.ReportWriter != nil {
		resources.Render(inv.config.ReportWriter, report)
	}

	if inv.recorder != nil {
		if err := inv.recorder.RecordMap(report.Map(), metadata.KindResources); err != nil {
			log.Warnf("Cannot record resources of topology %q: %v", definition.Name, err)
		}
	}
	return nil
}

// generationRequest runs topology main class with options pointing it to dir.
func (inv *invocation) generationRequest(dir string) launch.InvocationRequest {
	return launch.InvocationRequest{
		EntryPoint:     inv.request.TopologyClass,
		Classpath:      inv.config.Layout.Classpath(layout.Topology),
		ExtraResources: []string{inv.request.TopologyFile},
		Args:           append([]string(nil), inv.request.ExtraArgs...),
		Defines:        copyMap(inv.request.Properties),
		Options: map[string]string{
			DefinitionDirOption: dir,
			InitialStateOption:  inv.request.InitialState.String(),
		},
		Timeout: inv.config.GenerationTimeout,
	}
}

// resourcesRequest computes resources of the definition stored in path.
// Verbosity is decided when the request is built.
func (inv *invocation) resourcesRequest(path string) launch.InvocationRequest {
	configPath := inv.request.Cluster.ConfigPath
	if configPath == "" {
		configPath = inv.config.Layout.ConfDir()
	}

	args := []string{
		"--config_path", configPath,
		"--heron_home", inv.config.Layout.Home,
		"--override_config_file", inv.request.Cluster.OverrideConfigFile,
		"--topology_defn", path,
		"--release_file", inv.config.Layout.ReleaseFile(),
	}
	if logger.IsDebug(inv.config.LogLevel()) {
		args = append(args, "--verbose")
	}

	return launch.InvocationRequest{
		EntryPoint: ResourcesEntryPoint,
		Classpath:  inv.config.Layout.Classpath(layout.Scheduler, layout.StateManager, layout.Packing),
		Args:       args,
		Timeout:    inv.config.ResourcesTimeout,
	}
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	copied := make(map[string]string, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return copied
}
