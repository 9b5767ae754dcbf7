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

/*
Package conf is a thin layer over kingpin that provides:
- flags which can be overridden by environment variables with the HERON_ prefix,
- typed accessors that return defaults until the configuration is parsed,
- positional arguments for the command line tools,
- a dump of the current configuration as a sourceable environment script,
- the log level flags (logrus integration).
*/
package conf
