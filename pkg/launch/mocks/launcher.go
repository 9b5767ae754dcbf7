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

package mocks

import (
	"context"

	"github.com/ajorgensen/heron/pkg/launch"
	"github.com/stretchr/testify/mock"
)

// Launcher mock
type Launcher struct {
	mock.Mock
}

// Launch provides a mock function with given fields: ctx, request
func (_m *Launcher) Launch(ctx context.Context, request launch.InvocationRequest) (launch.Result, error) {
	ret := _m.Called(ctx, request)

	var r0 launch.Result
	if rf, ok := ret.Get(0).(func(context.Context, launch.InvocationRequest) launch.Result); ok {
		r0 = rf(ctx, request)
	} else {
		r0 = ret.Get(0).(launch.Result)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, launch.InvocationRequest) error); ok {
		r1 = rf(ctx, request)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
