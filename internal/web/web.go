// Package web embeds the browser page and its static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html static
var files embed.FS

// Page returns the unrendered page template.
func Page() []byte {
	b, err := files.ReadFile("index.html")
	if err != nil {
		panic(err)
	}
	return b
}

func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
