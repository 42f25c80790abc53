// Package web embeds the page templates and static assets.
package web

import "embed"

// TemplatesFS holds the layout, shared partials and one file per page.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css/js).
//
//go:embed static/*
var StaticFS embed.FS
