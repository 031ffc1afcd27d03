// Package features bundles the login and registration feature files so the
// runner works without a checkout of this directory.
package features

import "embed"

//go:embed *.feature
var FS embed.FS
