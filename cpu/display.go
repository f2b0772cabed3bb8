package cpu

const (
	DISPLAY_WIDTH  = 64 // Display width in pixels.
	DISPLAY_HEIGHT = 32 // Display height in pixels.
)

// Display is the monochrome framebuffer, row-major.
// A true pixel is lit.
type Display struct {
	Pixel [DISPLAY_WIDTH * DISPLAY_HEIGHT]bool
}

// Clear turns off every pixel.
func (d *Display) Clear() {
	clear(d.Pixel[:])
}

// At returns the state of the pixel at col, row.
func (d *Display) At(col, row int) bool {
	return d.Pixel[row*DISPLAY_WIDTH+col]
}

// Row returns a copy of one display row.
func (d *Display) Row(row int) (pixels [DISPLAY_WIDTH]bool) {
	copy(pixels[:], d.Pixel[row*DISPLAY_WIDTH:(row+1)*DISPLAY_WIDTH])
	return
}

// Draw XORs a sprite onto the display, one byte per row, MSB leftmost.
//
// The start position wraps around the display edges, but the sprite
// itself is clipped: bits past the right edge are dropped for that row,
// and rows past the bottom edge end the draw.
//
// Returns true if any lit pixel was turned off.
func (d *Display) Draw(sprite []byte, col, row byte) (collision bool) {
	x0 := int(col) % DISPLAY_WIDTH
	y0 := int(row) % DISPLAY_HEIGHT

	for dy, bits := range sprite {
		y := y0 + dy
		if y >= DISPLAY_HEIGHT {
			break
		}
		for dx := range 8 {
			x := x0 + dx
			if x >= DISPLAY_WIDTH {
				break
			}
			if bits&(0x80>>dx) == 0 {
				continue
			}
			pixel := &d.Pixel[y*DISPLAY_WIDTH+x]
			if *pixel {
				collision = true
			}
			*pixel = !*pixel
		}
	}

	return
}
