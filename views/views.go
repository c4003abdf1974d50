// Package views holds the embedded HTML templates and static assets
package views

import "embed"

//go:embed layouts pages partials static
var FS embed.FS
