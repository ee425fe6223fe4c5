package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	snapshotCellWidth   = 8
	snapshotCellHeight  = 16
	snapshotBaselinePad = 4
)

// renderSnapshot draws plain screen rows black on white, one fixed cell per
// rune.
func renderSnapshot(rows []string) *image.RGBA {
	lines := make([]string, len(rows))
	width := 1
	for i, r := range rows {
		lines[i] = strings.ReplaceAll(r, "\t", "    ")
		width = max(width, len([]rune(lines[i])))
	}
	if len(lines) == 0 {
		lines = []string{""}
	}

	img := image.NewRGBA(image.Rect(0, 0, width*snapshotCellWidth, len(lines)*snapshotCellHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	baseline := snapshotCellHeight - snapshotBaselinePad
	for y, line := range lines {
		x := 0
		for _, r := range line {
			drawer.Dot = fixed.Point26_6{
				X: fixed.I(x),
				Y: fixed.I(y*snapshotCellHeight + baseline),
			}
			drawer.DrawString(string(r))
			x += snapshotCellWidth
		}
	}
	return img
}

func writeSnapshot(rows []string, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, renderSnapshot(rows)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
