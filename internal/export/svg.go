package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/san-kum/latentwalk/internal/latent"
)

// ContactSheetSVG lays frames out in a grid of cols columns, each frame
// scaled by scale and embedded as a PNG data URI.
func ContactSheetSVG(frames []image.Image, cols int, scale float64) (string, error) {
	if len(frames) == 0 {
		return "", latent.Invalid("cannot build a contact sheet from zero frames")
	}
	if cols < 1 {
		cols = len(frames)
	}
	if scale <= 0 {
		scale = 1
	}

	b := frames[0].Bounds()
	cellW := float64(b.Dx()) * scale
	cellH := float64(b.Dy()) * scale
	rows := (len(frames) + cols - 1) / cols
	width := cellW * float64(min(cols, len(frames)))
	height := cellH * float64(rows)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	var buf bytes.Buffer
	for i, f := range frames {
		buf.Reset()
		if err := png.Encode(&buf, f); err != nil {
			return "", fmt.Errorf("frame %d: %w", i, err)
		}
		x := float64(i%cols) * cellW
		y := float64(i/cols) * cellH
		sb.WriteString(fmt.Sprintf(`<image x="%.1f" y="%.1f" width="%.1f" height="%.1f" href="data:image/png;base64,%s"/>
`, x, y, cellW, cellH, base64.StdEncoding.EncodeToString(buf.Bytes())))
	}

	sb.WriteString("</svg>")
	return sb.String(), nil
}

// SeriesSVG draws values against their step index as a single polyline.
func SeriesSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		minY = math.Min(minY, v)
		maxY = math.Max(maxY, v)
	}

	// Add padding
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY
	rangeX := float64(len(values) - 1)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, v := range values {
		x := float64(i) / rangeX * float64(width)
		y := float64(height) - (v-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
