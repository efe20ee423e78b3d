// Package web embeds the browser UI served at the site root.
package web

import "embed"

//go:embed index.html login.html
var Assets embed.FS
