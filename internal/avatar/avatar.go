// Package avatar renders the default placeholder avatar: the first letter of
// a display name, uppercased and centered on a colored square.
//
// Generate is a pure function of its input — same letter, same bytes — so
// provisioning can run it at onboarding and the avatar route can re-run it
// for accounts that predate persisted avatars, with identical results.
package avatar

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Size is the canvas edge in pixels.
const Size = 100

// fontSize approximates the original's "bold 50px" letter.
const fontSize = 50

// palette is the fixed background palette. The letter's code point modulo
// the palette length picks the color, so a given letter always gets the
// same background.
var palette = [...]color.RGBA{
	{R: 0xFF, G: 0x57, B: 0x33, A: 0xFF}, // #FF5733
	{R: 0x33, G: 0xFF, B: 0x57, A: 0xFF}, // #33FF57
	{R: 0x33, G: 0x57, B: 0xFF, A: 0xFF}, // #3357FF
	{R: 0xFF, G: 0x33, B: 0xA8, A: 0xFF}, // #FF33A8
	{R: 0xA8, G: 0x33, B: 0xFF, A: 0xFF}, // #A833FF
}

var white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// parsedFont is the Go Bold typeface, parsed once at startup.
var parsedFont, fontParseErr = opentype.Parse(gobold.TTF)

// Generate renders the avatar for the given seed letter and returns it as
// encoded PNG bytes. The letter is uppercased before rendering and before
// palette selection, matching how usernames are displayed.
func Generate(seed rune) ([]byte, error) {
	if fontParseErr != nil {
		return nil, fmt.Errorf("avatar: parsing typeface: %w", fontParseErr)
	}

	letter := unicode.ToUpper(seed)
	bg := palette[int(letter)%len(palette)]

	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	// Faces are not safe for concurrent use, so each call builds its own.
	face, err := opentype.NewFace(parsedFont, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("avatar: creating font face: %w", err)
	}
	defer face.Close()

	drawCenteredLetter(img, face, letter)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("avatar: encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawCenteredLetter places the glyph so its advance width and cap extents
// straddle the canvas center.
func drawCenteredLetter(img *image.RGBA, face font.Face, letter rune) {
	s := string(letter)

	width := font.MeasureString(face, s)
	metrics := face.Metrics()

	x := (fixed.I(Size) - width) / 2
	// Baseline such that the glyph's vertical extent is centered.
	y := (fixed.I(Size) + metrics.Ascent - metrics.Descent) / 2

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(white),
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: y},
	}
	d.DrawString(s)
}
