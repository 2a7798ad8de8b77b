// Package export turns an ordered frame sequence into artifacts.
//
//   - [GIF]: timed, infinitely looping animation, optionally rubber-banded
//   - [ContactSheetSVG]: all frames side by side in one SVG
//   - [SeriesSVG]: a per-step walk statistic drawn as a line
//
// Use rubber-banding for walks that do not return to their start (linear
// and random walks). Circular walks are already periodic and loop as-is.
package export
