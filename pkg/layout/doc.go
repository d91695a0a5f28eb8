// Package layout places band markers around a province anchor without
// overlap.
//
// # Placers
//
// Every algorithm implements [Placer]:
//
//   - [Force]: a collision-resolving particle simulation in pixel space.
//     Markers are seeded on a golden-angle spiral around the anchor, pulled
//     toward it by centering forces and pushed apart by a collision force.
//     A final positional relaxation removes any residual overlap. Positions
//     are converted back to geographic coordinates through a
//     [converter.Converter].
//   - [Radial]: an instant, non-iterative circle around the anchor.
//   - [Spiral]: a golden-angle spiral in geographic space.
//   - [Raw]: every band at its own resolved coordinate.
//
// [Select] picks a placer from what is known about the group: whether the
// converter is available, whether the province anchor is valid, and the
// configured [Strategy].
//
// # Zoom
//
// Marker size and centering strength depend on the current zoom:
//
//	t      = clamp((zoom - 1) / (10 - 1), 0, 1)
//	size   = 32 + 12·t
//	center = 0.3 + 0.7·t
//
// Zoomed in, screen space per degree is larger, so drift away from the
// anchor is more visible and the centering force is stronger.
//
// # Determinism
//
// No placer uses randomness. Given the same band order, anchor and
// configuration, every placer returns identical positions.
package layout
