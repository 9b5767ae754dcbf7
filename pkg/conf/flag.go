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

package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"
)

// flagType is an internal interface for all flags.
// Every flag knows its environment name, can clear corresponding environment variable
// and describes itself for configuration dumps.
type flagType interface {
	envName() string
	clear()
	name() string
	help() string
	defaultString() string
	valueString() string
}

var (
	// definedFlags stores all the defined flags and helps to find duplicates when
	// defining flag with the same name.
	definedFlags = map[string]flagType{}
	// orderedFlags keeps definition order, so dumps group flags logically.
	orderedFlags []flagType
)

// cliAndEnvFlag represents option's definition from CLI and Environment variable.
type cliAndEnvFlag struct {
	*kingpin.FlagClause
	description string
}

func newCliAndEnvFlag(flagName string, description string, defaultValues ...string) *cliAndEnvFlag {
	if definedFlags[flagName] != nil {
		panic(fmt.Sprintf("flag %q was already defined", flagName))
	}

	c := &cliAndEnvFlag{FlagClause: app.Flag(flagName, description), description: description}
	c.Envar(c.envName())

	for _, defaultValue := range defaultValues {
		if defaultValue == "" {
			continue
		}
		c.Default(defaultValue)
	}

	return c
}

func register(flagName string, f flagType) {
	definedFlags[flagName] = f
	orderedFlags = append(orderedFlags, f)
	isEnvParsed = false
}

// lookup returns already defined flag of the same name. It panics when the type differs.
func lookup(flagName string, sameType func(flagType) bool) flagType {
	duplicatedFlag := definedFlags[flagName]
	if duplicatedFlag == nil {
		return nil
	}
	if !sameType(duplicatedFlag) {
		panic(fmt.Sprintf("flag %q was redefined but with different type", flagName))
	}
	return duplicatedFlag
}

// envName returns name converted to environment variable name,
// e.g. "heron_home" will be "HERON_HERON_HOME".
func (f *cliAndEnvFlag) envName() string {
	return fmt.Sprintf("%s_%s", EnvironmentPrefix, strings.ToUpper(f.Model().Name))
}

// clear unset the corresponded environment variable.
func (f *cliAndEnvFlag) clear() {
	os.Unsetenv(f.envName())
}

func (f *cliAndEnvFlag) name() string {
	return f.Model().Name
}

func (f *cliAndEnvFlag) help() string {
	return f.description
}

// StringFlag represents flag with string value.
type StringFlag struct {
	*cliAndEnvFlag
	defaultValue string
	value        *string
}

// NewStringFlag is a constructor of StringFlag struct.
// Redefinition with the same type and default returns the existing flag.
func NewStringFlag(flagName string, description string, defaultValue string) *StringFlag {
	if f := lookup(flagName, func(f flagType) bool { _, ok := f.(*StringFlag); return ok }); f != nil {
		flagDef := f.(*StringFlag)
		if flagDef.defaultValue != defaultValue {
			panic(fmt.Sprintf("flag %q was redefined but with different default value", flagName))
		}
		return flagDef
	}

	flagDef := &StringFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.String()
	register(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (s StringFlag) Value() string {
	if !isEnvParsed {
		return s.defaultValue
	}
	return *s.value
}

func (s StringFlag) defaultString() string { return s.defaultValue }
func (s StringFlag) valueString() string   { return s.Value() }

// IntFlag represents flag with int value.
type IntFlag struct {
	*cliAndEnvFlag
	defaultValue int
	value        *int
}

// NewIntFlag is a constructor of IntFlag struct.
func NewIntFlag(flagName string, description string, defaultValue int) *IntFlag {
	if f := lookup(flagName, func(f flagType) bool { _, ok := f.(*IntFlag); return ok }); f != nil {
		flagDef := f.(*IntFlag)
		if flagDef.defaultValue != defaultValue {
			panic(fmt.Sprintf("flag %q was redefined but with different default value", flagName))
		}
		return flagDef
	}

	flagDef := &IntFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%d", defaultValue)),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Int()
	register(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (i IntFlag) Value() int {
	if !isEnvParsed {
		return i.defaultValue
	}
	return *i.value
}

func (i IntFlag) defaultString() string { return fmt.Sprintf("%d", i.defaultValue) }
func (i IntFlag) valueString() string   { return fmt.Sprintf("%d", i.Value()) }

// BoolFlag represents flag with bool value.
type BoolFlag struct {
	*cliAndEnvFlag
	defaultValue bool
	value        *bool
}

// NewBoolFlag is a constructor of BoolFlag struct.
func NewBoolFlag(flagName string, description string, defaultValue bool) *BoolFlag {
	if f := lookup(flagName, func(f flagType) bool { _, ok := f.(*BoolFlag); return ok }); f != nil {
		flagDef := f.(*BoolFlag)
		if flagDef.defaultValue != defaultValue {
			panic(fmt.Sprintf("flag %q was redefined but with different default value", flagName))
		}
		return flagDef
	}

	flagDef := &BoolFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%v", defaultValue)),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Bool()
	register(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (b BoolFlag) Value() bool {
	if !isEnvParsed {
		return b.defaultValue
	}
	return *b.value
}

func (b BoolFlag) defaultString() string { return fmt.Sprintf("%v", b.defaultValue) }
func (b BoolFlag) valueString() string   { return fmt.Sprintf("%v", b.Value()) }

// DurationFlag represents flag with duration value.
type DurationFlag struct {
	*cliAndEnvFlag
	defaultValue time.Duration
	value        *time.Duration
}

// NewDurationFlag is a constructor of DurationFlag struct.
func NewDurationFlag(flagName string, description string, defaultValue time.Duration) *DurationFlag {
	if f := lookup(flagName, func(f flagType) bool { _, ok := f.(*DurationFlag); return ok }); f != nil {
		flagDef := f.(*DurationFlag)
		if flagDef.defaultValue != defaultValue {
			panic(fmt.Sprintf("flag %q was redefined but with different default value", flagName))
		}
		return flagDef
	}

	flagDef := &DurationFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue.String()),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Duration()
	register(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (d DurationFlag) Value() time.Duration {
	if !isEnvParsed {
		return d.defaultValue
	}
	return *d.value
}

func (d DurationFlag) defaultString() string { return d.defaultValue.String() }
func (d DurationFlag) valueString() string   { return d.Value().String() }

// SliceFlag represents repeatable flag with slice value.
type SliceFlag struct {
	*cliAndEnvFlag
	defaultValue []string
	value        *[]string
}

// NewSliceFlag is a constructor of SliceFlag struct.
func NewSliceFlag(flagName string, description string, elemsInDefaultSlice ...string) *SliceFlag {
	if f := lookup(flagName, func(f flagType) bool { _, ok := f.(*SliceFlag); return ok }); f != nil {
		flagDef := f.(*SliceFlag)
		if strings.Join(flagDef.defaultValue, stringListDelimiter) != strings.Join(elemsInDefaultSlice, stringListDelimiter) {
			panic(fmt.Sprintf("flag %q was redefined but with different default value", flagName))
		}
		return flagDef
	}

	flagDef := &SliceFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, strings.Join(elemsInDefaultSlice, stringListDelimiter)),
		defaultValue:  elemsInDefaultSlice,
	}
	flagDef.value = StringList(flagDef)
	register(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (s SliceFlag) Value() []string {
	if !isEnvParsed {
		return append([]string(nil), s.defaultValue...)
	}
	return append([]string(nil), *s.value...)
}

func (s SliceFlag) defaultString() string { return strings.Join(s.defaultValue, stringListDelimiter) }
func (s SliceFlag) valueString() string   { return strings.Join(s.Value(), stringListDelimiter) }
