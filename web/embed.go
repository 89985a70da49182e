// Package web embeds the form templates and static assets.
package web

import "embed"

// TemplatesFS holds the page and the HTMX fragments.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the page script.
//
//go:embed static/*
var StaticFS embed.FS
