// Package assets embeds the browser shell served by `lochistory serve`.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed web
var embedded embed.FS

// Web returns the shell files rooted at the web directory.
func Web() fs.FS {
	sub, err := fs.Sub(embedded, "web")
	if err != nil {
		panic(err)
	}
	return sub
}
