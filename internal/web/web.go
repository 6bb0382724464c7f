// Package web embeds the single-page studio UI.
package web

import _ "embed"

//go:embed index.html
var IndexHTML []byte
