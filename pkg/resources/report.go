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

// Package resources decodes and presents resource reports printed by the
// resource computation entry point.
package resources

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Resource is an amount of cpu, ram and disk. Ram and disk are in bytes.
type Resource struct {
	CPU  decimal.Decimal `json:"cpu"`
	RAM  decimal.Decimal `json:"ram"`
	Disk decimal.Decimal `json:"disk"`
}

// Add returns sum of both resources.
func (r Resource) Add(other Resource) Resource {
	return Resource{
		CPU:  r.CPU.Add(other.CPU),
		RAM:  r.RAM.Add(other.RAM),
		Disk: r.Disk.Add(other.Disk),
	}
}

// Report describes resources required by a single topology.
type Report struct {
	TopologyName string              `json:"topology_name"`
	Containers   map[string]Resource `json:"containers"`
	Totals       Resource            `json:"totals"`
}

// Parse finds the report in the output of the resource computation.
// The report is the last line starting with "{"; other lines are logs of the process.
func Parse(output string) (Report, error) {
	var line string
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if text := strings.TrimSpace(scanner.Text()); strings.HasPrefix(text, "{") {
			line = text
		}
	}
	if err := scanner.Err(); err != nil {
		return Report{}, errors.Wrap(err, "cannot read resource report")
	}
	if line == "" {
		return Report{}, errors.New("resource report not found in output")
	}

	var report Report
	if err := json.Unmarshal([]byte(line), &report); err != nil {
		return Report{}, errors.Wrap(err, "cannot decode resource report")
	}
	if report.TopologyName == "" {
		return Report{}, errors.New("resource report has no topology name")
	}
	return report, nil
}

// ContainerIDs returns container ids in numeric order; ids which are not numbers go last.
func (r Report) ContainerIDs() []string {
	ids := make([]string, 0, len(r.Containers))
	for id := range r.Containers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}

// ContainersTotal sums container resources. It can differ from Totals which may include
// resources of the topology master.
func (r Report) ContainersTotal() Resource {
	var total Resource
	for _, resource := range r.Containers {
		total = total.Add(resource)
	}
	return total
}

// Map flattens the report to string keys and values.
func (r Report) Map() map[string]string {
	m := map[string]string{
		"topology_name": r.TopologyName,
		"containers":    strconv.Itoa(len(r.Containers)),
	}
	put := func(prefix string, resource Resource) {
		m[prefix+".cpu"] = resource.CPU.String()
		m[prefix+".ram"] = resource.RAM.String()
		m[prefix+".disk"] = resource.Disk.String()
	}
	for id, resource := range r.Containers {
		put("container."+id, resource)
	}
	put("totals", r.Totals)
	return m
}

// Render prints the report as a table.
func Render(w io.Writer, report Report) {
	fmt.Fprintf(w, "Topology %q\n", report.TopologyName)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Container", "CPU", "RAM (MB)", "Disk (MB)"})
	for _, id := range report.ContainerIDs() {
		table.Append(row(id, report.Containers[id]))
	}
	table.SetFooter(row("Total", report.Totals))
	table.Render()
}

var megabyte = decimal.NewFromInt(1 << 20)

func row(name string, resource Resource) []string {
	return []string{
		name,
		resource.CPU.String(),
		resource.RAM.DivRound(megabyte, 2).String(),
		resource.Disk.DivRound(megabyte, 2).String(),
	}
}
