// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time.
package buildvars

// Version is set at link time via `-ldflags -X github.com/mediabot/mediabot/buildvars.Version=...`.
// It will be empty for local or development builds.
var Version string

// Commit is the short VCS revision, set at link time alongside Version.
var Commit string

// VersionOrDefault returns `Version` if set, otherwise returns the provided default.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}
