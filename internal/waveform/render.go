package waveform

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/image/vector"

	"github.com/satindergrewal/chillatc/internal/audio"
	"github.com/satindergrewal/chillatc/internal/playstate"
)

const (
	strokeWidth   = 3
	trailAlpha    = 0.3
	sideFadeWidth = 60
)

// ErrUnknownSource is returned by Reset for a source with no layer.
var ErrUnknownSource = errors.New("waveform: unknown source")

// Layer binds one source's trackers to its colors.
type Layer struct {
	Source  playstate.Source
	Playing playstate.Reader
	Volume  playstate.VolumeReader
	Dark    color.NRGBA
	Light   color.NRGBA
}

// Options configures a Renderer.
type Options struct {
	Width, Height int
	Smoothing     float64
	IdleAmplitude float64
	IdleFrequency float64
	Background    color.NRGBA
	Seed          int64 // 0 seeds from the clock
}

type layer struct {
	Layer
	params   Params
	smoother *Smoother
	stroke   *image.RGBA
}

// Renderer rasterises the waves into an RGBA canvas. Safe for concurrent
// use; Frame is normally driven by an Animator.
type Renderer struct {
	mu     sync.Mutex
	w, h   int
	bg     color.NRGBA
	rng    *rand.Rand
	img    *image.RGBA
	raster *vector.Rasterizer
	layers []*layer
	frames uint64
}

// NewRenderer creates a renderer drawing the given layers in order.
func NewRenderer(opts Options, layers ...Layer) *Renderer {
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 200
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := &Renderer{
		bg:  opts.Background,
		rng: rand.New(rand.NewSource(seed)),
	}
	for _, l := range layers {
		r.layers = append(r.layers, &layer{
			Layer:    l,
			smoother: NewSmoother(opts.Smoothing, opts.IdleAmplitude, opts.IdleFrequency),
		})
	}
	r.resize(opts.Width, opts.Height)
	for _, l := range r.layers {
		l.params = NewParams(r.rng, r.h)
	}
	return r
}

// Size returns the canvas dimensions.
func (r *Renderer) Size() (w, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w, r.h
}

// Frames returns how many frames were drawn.
func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Params returns the current wave parameters of src.
func (r *Renderer) Params(src playstate.Source) (Params, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l := r.layer(src); l != nil {
		return l.params, true
	}
	return Params{}, false
}

// Scales returns the current smoothed amplitude and frequency of src.
func (r *Renderer) Scales(src playstate.Source) (amp, freq float64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l := r.layer(src); l != nil {
		amp, freq = l.smoother.Current()
		return amp, freq, true
	}
	return 0, 0, false
}

func (r *Renderer) layer(src playstate.Source) *layer {
	for _, l := range r.layers {
		if l.Source == src {
			return l
		}
	}
	return nil
}

// Reset draws fresh parameters for src.
func (r *Renderer) Reset(src playstate.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.layer(src)
	if l == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}
	l.params = NewParams(r.rng, r.h)
	return nil
}

// Resize changes the canvas size. Wave parameters and smoothing state
// carry over.
func (r *Renderer) Resize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("waveform: bad size %dx%d", w, h)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resize(w, h)
	return nil
}

func (r *Renderer) resize(w, h int) {
	r.w, r.h = w, h
	r.img = image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(r.bg), image.Point{}, draw.Src)
	r.raster = vector.NewRasterizer(w, h)
	for _, l := range r.layers {
		l.stroke = gradientImage(w, h, l.Dark, l.Light)
	}
}

// Frame draws one frame at t seconds since the animation epoch.
func (r *Renderer) Frame(t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bounds := r.img.Bounds()
	draw.Draw(r.img, bounds, image.NewUniform(withAlpha(r.bg, trailAlpha)), image.Point{}, draw.Over)

	cy := float64(r.h) / 2
	pts := make([]point, r.w)
	for _, l := range r.layers {
		playing := l.Playing != nil && l.Playing.Playing()
		volume := 1.0
		if l.Volume != nil {
			volume = l.Volume.Volume()
		}
		amp, freq := l.smoother.Step(playing)
		for x := range pts {
			pts[x] = point{float64(x), cy + l.params.Y(float64(x), t, amp, freq, volume)}
		}
		r.raster.Reset(r.w, r.h)
		strokePolyline(r.raster, pts, strokeWidth/2.0)
		r.raster.Draw(r.img, bounds, l.stroke, image.Point{})
	}
	r.sideFade()
	r.frames++
}

// sideFade blends the background over both edges.
func (r *Renderer) sideFade() {
	fw := math.Min(sideFadeWidth, float64(r.w)/2)
	for x := 0; x < int(math.Ceil(fw)); x++ {
		a := audio.EdgeFade(float64(x)+0.5, fw)
		if a <= 0 {
			continue
		}
		src := image.NewUniform(withAlpha(r.bg, a))
		draw.Draw(r.img, image.Rect(x, 0, x+1, r.h), src, image.Point{}, draw.Over)
		draw.Draw(r.img, image.Rect(r.w-1-x, 0, r.w-x, r.h), src, image.Point{}, draw.Over)
	}
}

// Snapshot returns a copy of the current canvas.
func (r *Renderer) Snapshot() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := image.NewRGBA(r.img.Bounds())
	copy(cp.Pix, r.img.Pix)
	return cp
}

// WritePNG encodes the current canvas as PNG.
func (r *Renderer) WritePNG(w io.Writer) error {
	return png.Encode(w, r.Snapshot())
}

type point struct{ x, y float64 }

// strokePolyline adds the outline of pts widened by hw on each side,
// with round caps.
func strokePolyline(z *vector.Rasterizer, pts []point, hw float64) {
	n := len(pts)
	if n < 2 {
		return
	}
	left := make([]point, n)
	right := make([]point, n)
	for i := range pts {
		a, b := pts[max(i-1, 0)], pts[min(i+1, n-1)]
		dx, dy := b.x-a.x, b.y-a.y
		l := math.Hypot(dx, dy)
		if l == 0 {
			l = 1
		}
		nx, ny := -dy/l*hw, dx/l*hw
		left[i] = point{pts[i].x + nx, pts[i].y + ny}
		right[i] = point{pts[i].x - nx, pts[i].y - ny}
	}
	z.MoveTo(float32(left[0].x), float32(left[0].y))
	for _, p := range left[1:] {
		z.LineTo(float32(p.x), float32(p.y))
	}
	for i := n - 1; i >= 0; i-- {
		z.LineTo(float32(right[i].x), float32(right[i].y))
	}
	z.ClosePath()
	dot(z, pts[0], hw)
	dot(z, pts[n-1], hw)
}

// dot adds a filled circle approximated by a 12-gon.
func dot(z *vector.Rasterizer, c point, r float64) {
	const sides = 12
	z.MoveTo(float32(c.x+r), float32(c.y))
	for i := 1; i < sides; i++ {
		a := 2 * math.Pi * float64(i) / sides
		z.LineTo(float32(c.x+r*math.Cos(a)), float32(c.y+r*math.Sin(a)))
	}
	z.ClosePath()
}
