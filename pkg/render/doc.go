// Package render turns a laid-out band map into output files.
//
// The [svg] subpackage draws a [controller.Snapshot] as an SVG document.
// This package converts that SVG to other formats using the external
// rsvg-convert tool (from librsvg):
//
//	doc := svg.Render(snap, vp, svg.WithOutlines(geom.Collection))
//	pdf, err := render.ToPDF(ctx, doc)
//	png, err := render.ToPNG(ctx, doc, 2.0) // 2x scale
//
// [svg]: github.com/matzehuels/bandmap/pkg/render/svg
// [controller.Snapshot]: github.com/matzehuels/bandmap/pkg/controller#Snapshot
package render
