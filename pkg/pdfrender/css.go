package pdfrender

import (
	"fmt"
	"strings"

	"github.com/certforge/certforge/pkg/template"
)

// injectStyles builds the @page rule from settings, appends the version's
// raw CSS, and inserts the combined style block into <head>. Without a
// <head> it synthesizes one after <html>; without either tag it prepends
// the bare style block to the document.
func injectStyles(htmlIn, css string, settings template.RenderSettings) string {
	pageCSS := fmt.Sprintf(
		"@page { size: %s %s; margin: %gmm %gmm %gmm %gmm; }",
		settings.PageSize, settings.Orientation,
		settings.MarginTop, settings.MarginRight, settings.MarginBottom, settings.MarginLeft,
	)
	styleBlock := fmt.Sprintf("<style>%s\n%s</style>", pageCSS, css)

	if strings.Contains(htmlIn, "<head>") {
		return strings.Replace(htmlIn, "<head>", "<head>"+styleBlock, 1)
	}
	if strings.Contains(htmlIn, "<html>") {
		return strings.Replace(htmlIn, "<html>", "<html><head>"+styleBlock+"</head>", 1)
	}
	return styleBlock + htmlIn
}
