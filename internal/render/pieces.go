package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const discSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">` +
	`<circle cx="50" cy="50" r="36" fill="%s" stroke="%s" stroke-width="6"/></svg>`

type discKey struct {
	white bool
	size  int
}

var (
	discCache   = map[discKey]image.Image{}
	discCacheMu sync.RWMutex
)

// pieceDisc rasterises the round token a piece letter is drawn on.
func pieceDisc(white bool, size int) (image.Image, error) {
	key := discKey{white: white, size: size}
	discCacheMu.RLock()
	if img, ok := discCache[key]; ok {
		discCacheMu.RUnlock()
		return img, nil
	}
	discCacheMu.RUnlock()

	fill, stroke := "#1c1f2e", "#ecefff"
	if white {
		fill, stroke = "#f8f8f2", "#1c1f2e"
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader([]byte(fmt.Sprintf(discSVG, fill, stroke))))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	discCacheMu.Lock()
	discCache[key] = img
	discCacheMu.Unlock()
	return img, nil
}
