package waveform

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Theme is the palette as hex strings. Empty entries use the defaults.
type Theme struct {
	Background   string
	ATCDark      string
	ATCLight     string
	SpotifyDark  string
	SpotifyLight string
}

// Palette is a parsed Theme.
type Palette struct {
	Background   color.NRGBA
	ATCDark      color.NRGBA
	ATCLight     color.NRGBA
	SpotifyDark  color.NRGBA
	SpotifyLight color.NRGBA
}

// DefaultPalette is used for entries that are empty or fail to parse.
var DefaultPalette = Palette{
	Background:   nrgba(colornames.Black),
	ATCDark:      nrgba(colornames.Darkorange),
	ATCLight:     nrgba(colornames.Gold),
	SpotifyDark:  nrgba(colornames.Seagreen),
	SpotifyLight: nrgba(colornames.Lightgreen),
}

func nrgba(c color.RGBA) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// ParseHex parses "#rgb", "#rrggbb" or "#rrggbbaa", with or without the
// leading '#'.
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("waveform: bad color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("waveform: bad color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Palette parses t, keeping the default for each bad or empty entry.
func (t Theme) Palette() Palette {
	p := DefaultPalette
	pick(&p.Background, t.Background)
	pick(&p.ATCDark, t.ATCDark)
	pick(&p.ATCLight, t.ATCLight)
	pick(&p.SpotifyDark, t.SpotifyDark)
	pick(&p.SpotifyLight, t.SpotifyLight)
	return p
}

func pick(dst *color.NRGBA, hex string) {
	if hex == "" {
		return
	}
	if c, err := ParseHex(hex); err == nil {
		*dst = c
	}
}

// withAlpha returns c with its alpha scaled by a in [0,1].
func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(float64(c.A)*a + 0.5)
	return c
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5) }
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// gradientStops are the vertical stroke stops: light at both edges,
// dark through the middle.
var gradientStops = []struct {
	at    float64
	light bool
}{
	{0, true}, {0.25, false}, {0.5, false}, {0.75, false}, {1, true},
}

// gradientAt returns the stroke color at fraction f of the height.
func gradientAt(dark, light color.NRGBA, f float64) color.NRGBA {
	stop := func(i int) color.NRGBA {
		if gradientStops[i].light {
			return light
		}
		return dark
	}
	if f <= 0 {
		return stop(0)
	}
	for i := 1; i < len(gradientStops); i++ {
		if f <= gradientStops[i].at {
			lo, hi := gradientStops[i-1].at, gradientStops[i].at
			return lerp(stop(i-1), stop(i), (f-lo)/(hi-lo))
		}
	}
	return stop(len(gradientStops) - 1)
}

// gradientImage fills a w×h image with the vertical stroke gradient.
func gradientImage(w, h int, dark, light color.NRGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := gradientAt(dark, light, (float64(y)+0.5)/float64(h))
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
