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

package topology

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of heron's Topology message and its nested messages.
const (
	topologyIDField     protowire.Number = 1
	topologyNameField   protowire.Number = 2
	topologySpoutsField protowire.Number = 3
	topologyBoltsField  protowire.Number = 4
	topologyStateField  protowire.Number = 5

	// Spout and Bolt keep their Component in field 1, Component keeps its name in field 1.
	componentField     protowire.Number = 1
	componentNameField protowire.Number = 1
)

var stateByNumber = map[protowire.Number]InitialState{
	1: Running,
	2: Paused,
	3: Killed,
}

var numberByState = map[InitialState]uint64{
	Running: 1,
	Paused:  2,
	Killed:  3,
}

// Unmarshal decodes Topology message. Fields which are not needed are skipped.
func Unmarshal(b []byte) (Definition, error) {
	var definition Definition
	var hasID, hasName bool

	err := walk(b, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch {
		case num == topologyIDField && typ == protowire.BytesType:
			definition.ID, hasID = string(value), true
		case num == topologyNameField && typ == protowire.BytesType:
			definition.Name, hasName = string(value), true
		case num == topologySpoutsField && typ == protowire.BytesType:
			name, err := componentName(value)
			if err != nil {
				return errors.Wrap(err, "spout")
			}
			definition.Spouts = append(definition.Spouts, name)
		case num == topologyBoltsField && typ == protowire.BytesType:
			name, err := componentName(value)
			if err != nil {
				return errors.Wrap(err, "bolt")
			}
			definition.Bolts = append(definition.Bolts, name)
		case num == topologyStateField && typ == protowire.VarintType:
			state, ok := stateByNumber[protowire.Number(varint)]
			if !ok {
				return errors.Errorf("unknown topology state %d", varint)
			}
			definition.State = state
		}
		return nil
	})
	if err != nil {
		return Definition{}, err
	}

	if !hasID {
		return Definition{}, errors.New("topology id is missing")
	}
	if !hasName {
		return Definition{}, errors.New("topology name is missing")
	}
	return definition, nil
}

// Marshal encodes definition as Topology message. Path is not encoded.
func (d Definition) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, topologyIDField, protowire.BytesType)
	b = protowire.AppendString(b, d.ID)
	b = protowire.AppendTag(b, topologyNameField, protowire.BytesType)
	b = protowire.AppendString(b, d.Name)
	for _, spout := range d.Spouts {
		b = protowire.AppendTag(b, topologySpoutsField, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalComponent(spout))
	}
	for _, bolt := range d.Bolts {
		b = protowire.AppendTag(b, topologyBoltsField, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalComponent(bolt))
	}
	if number, ok := numberByState[d.State]; ok {
		b = protowire.AppendTag(b, topologyStateField, protowire.VarintType)
		b = protowire.AppendVarint(b, number)
	}
	return b
}

func marshalComponent(name string) []byte {
	var component []byte
	component = protowire.AppendTag(component, componentNameField, protowire.BytesType)
	component = protowire.AppendString(component, name)

	var b []byte
	b = protowire.AppendTag(b, componentField, protowire.BytesType)
	return protowire.AppendBytes(b, component)
}

// componentName extracts component name from Spout or Bolt message.
func componentName(b []byte) (name string, err error) {
	err = walk(b, func(num protowire.Number, typ protowire.Type, component []byte, _ uint64) error {
		if num != componentField || typ != protowire.BytesType {
			return nil
		}
		return walk(component, func(num protowire.Number, typ protowire.Type, value []byte, _ uint64) error {
			if num == componentNameField && typ == protowire.BytesType {
				name = string(value)
			}
			return nil
		})
	})
	return name, err
}

// walk calls fn for every field of the message. Length delimited fields are passed
// in value, varints in varint. Other wire types are validated and skipped.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "malformed tag")
		}
		b = b[n:]

		var value []byte
		var varint uint64
		switch typ {
		case protowire.BytesType:
			value, n = protowire.ConsumeBytes(b)
		case protowire.VarintType:
			varint, n = protowire.ConsumeVarint(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return errors.Wrapf(protowire.ParseError(n), "malformed field %d", num)
		}
		b = b[n:]

		if err := fn(num, typ, value, varint); err != nil {
			return err
		}
	}
	return nil
}
