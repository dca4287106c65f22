// Package assets bundles the images the operator can send with
// "/image embed:<name>".
package assets

import "embed"

//go:embed *.png
var FS embed.FS
