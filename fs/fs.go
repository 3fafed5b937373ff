// Package appfs exposes the app's embedded static files.
package appfs

import "embed"

//go:embed migrations
var Migrations embed.FS

//go:embed all:templates/email
var Templates embed.FS

//go:embed assets
var Assets embed.FS
