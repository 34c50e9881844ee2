// Package mosaic bakes episode thumbnails into a single sprite sheet: an
// 8x8 grid of 256x256 tiles on a 2048x2048 canvas. Tiles are deduplicated
// by show title, so every airing of a show shares one slot.
package mosaic

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

const (
	// TileSize is the edge length of one slot in pixels.
	TileSize = 256
	// GridSize is the number of tiles per row and per column.
	GridSize = 8
	// Capacity is the total slot count.
	Capacity = GridSize * GridSize
	// CanvasSize is the sheet edge length in pixels.
	CanvasSize = GridSize * TileSize
)

var (
	// ErrFull means the sheet has no free slot. Once capacity is hit the
	// refusal latches: no new title gets a slot for the rest of the run,
	// though already-placed titles keep resolving to theirs.
	ErrFull = errors.New("mosaic: sheet full")
	// ErrBadImage means the thumbnail bytes did not decode. The slot is
	// not consumed.
	ErrBadImage = errors.New("mosaic: undecodable image")
)

// Packer accumulates tiles onto the sheet. Not safe for concurrent use.
type Packer struct {
	canvas *image.RGBA
	slots  map[string]int // show title -> 1-based slot
	used   int
	full   bool
}

// NewPacker returns a packer with a white canvas.
func NewPacker() *Packer {
	canvas := image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	return &Packer{canvas: canvas, slots: make(map[string]int, Capacity)}
}

// Place returns the 1-based slot for title, baking the thumbnail into the
// sheet on first sight. The image is stretched to exactly TileSize square;
// aspect ratio is not preserved, matching how the player samples the sheet.
//
// Repeat titles return their existing slot without touching data, even
// after the sheet fills up.
func (p *Packer) Place(title string, data []byte) (int, error) {
	if slot, ok := p.slots[title]; ok {
		return slot, nil
	}
	if p.full {
		return 0, ErrFull
	}
	if p.used+1 > Capacity {
		p.full = true
		return 0, ErrFull
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrBadImage, title, err)
	}

	x := (p.used % GridSize) * TileSize
	y := (p.used / GridSize) * TileSize
	dst := image.Rect(x, y, x+TileSize, y+TileSize)
	xdraw.ApproxBiLinear.Scale(p.canvas, dst, src, src.Bounds(), xdraw.Src, nil)

	p.used++
	p.slots[title] = p.used
	return p.used, nil
}

// Used reports how many slots are occupied.
func (p *Packer) Used() int { return p.used }

// Image exposes the canvas, mainly for tests.
func (p *Packer) Image() *image.RGBA { return p.canvas }

// EncodeJPEG writes the sheet as a JPEG.
func (p *Packer) EncodeJPEG(w io.Writer) error {
	if err := jpeg.Encode(w, p.canvas, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("mosaic: encode: %w", err)
	}
	return nil
}
