// Package web holds the static gallery page. The same files are embedded into
// the local server and uploaded to the website bucket by the CDK stack.
package web

import "embed"

//go:embed index.html app.js style.css
var Files embed.FS
