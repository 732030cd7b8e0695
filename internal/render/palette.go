package render

import (
	"image/color"

	"golang.org/x/image/colornames"
)

const grayRampSteps = 32

// framePalette holds the square colors first so they map exactly, then the web-safe
// cube for piece artwork, then a gray ramp for antialiased edges. Duplicates are
// dropped; the result stays within 256 entries.
func framePalette() color.Palette {
	seen := make(map[color.RGBA]bool)
	p := make(color.Palette, 0, 256)
	add := func(c color.RGBA) {
		if seen[c] || len(p) >= 256 {
			return
		}
		seen[c] = true
		p = append(p, c)
	}

	add(LightSquare)
	add(DarkSquare)
	add(colornames.Black)
	add(moveHighlightOnSquares(LightSquare))
	add(moveHighlightOnSquares(DarkSquare))

	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				add(color.RGBA{R: uint8(r * 0x33), G: uint8(g * 0x33), B: uint8(b * 0x33), A: 0xff})
			}
		}
	}
	for i := 0; i < grayRampSteps; i++ {
		v := uint8(i * 255 / (grayRampSteps - 1))
		add(color.RGBA{R: v, G: v, B: v, A: 0xff})
	}
	return p
}

// moveHighlightOnSquares is the opaque result of the highlight tint over a square.
func moveHighlightOnSquares(base color.RGBA) color.RGBA {
	a := uint32(moveHighlight.A)
	mix := func(src, dst uint8) uint8 {
		return uint8((uint32(src)*a + uint32(dst)*(255-a) + 127) / 255)
	}
	return color.RGBA{
		R: mix(moveHighlight.R, base.R),
		G: mix(moveHighlight.G, base.G),
		B: mix(moveHighlight.B, base.B),
		A: 0xff,
	}
}
