// Copyright 2026 The Winefox Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package version

import (
	"fmt"
	"regexp"
)

// Version and Hash are overridden at build time with -ldflags "-X"
var (
	Version = "0.1.0-dev"
	Hash    = "unknown"
)

var versionRegex = regexp.MustCompile(`v?([0-9]+(?:\.[0-9]+(?:\.[0-9]+(?:-[a-zA-Z0-9]+)?)?)?)`)

// Sanitize checks a version string and strips any "v" prefix
func Sanitize(versionString string) (string, error) {
	matches := versionRegex.FindStringSubmatch(versionString)
	if matches == nil {
		return "", fmt.Errorf("unable to sanitize version string %q, it is an invalid version", versionString)
	}
	return matches[1], nil
}

// UserAgent identifies the CLI in outgoing requests
func UserAgent() string {
	sanitized, err := Sanitize(Version)
	if err != nil {
		sanitized = Version
	}
	return "winefox-cli/" + sanitized
}
