// Package export renders the primitives of a retained surface to SVG,
// PNG or plain text.
package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ivrflow/geom"
	"ivrflow/surface"
)

// ErrEmpty is returned when there is nothing to draw.
var ErrEmpty = errors.New("export: nothing to export")

// Scene is the read side of a retained surface. *surface.Memory
// implements it.
type Scene interface {
	Primitives() []*surface.Primitive
	Extent() geom.Rect
}

type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatText Format = "txt"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatSVG, FormatPNG, FormatText:
		return f, nil
	case "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("export: unknown format %q", s)
}

// Padding is the margin kept around the drawing extent.
const Padding = 20

// Write renders the scene in the given format.
func Write(w io.Writer, scene Scene, f Format) error {
	switch f {
	case FormatSVG:
		return SVG(w, scene)
	case FormatPNG:
		return PNG(w, scene, 1)
	case FormatText:
		return Text(w, scene)
	}
	return fmt.Errorf("export: unknown format %q", f)
}

func frame(scene Scene) (geom.Rect, error) {
	ext := scene.Extent()
	if ext.W == 0 && ext.H == 0 {
		return geom.Rect{}, ErrEmpty
	}
	return ext.Inset(-Padding), nil
}

// parseHex reads #rgb or #rrggbb. Anything else is black.
func parseHex(s string) (r, g, b uint8) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}
