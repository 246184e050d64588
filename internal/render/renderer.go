// Package render draws a board position as a PNG image.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/chess-arbiter/internal/chessrules"
)

const (
	squareSize = 56
	margin     = 20
	boardSize  = squareSize * 8
)

// Highlight marks the last move.
type Highlight struct {
	From chessrules.Square
	To   chessrules.Square
}

type Options struct {
	Highlight *Highlight
	// Flip draws the board from black's side.
	Flip bool
}

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	backgroundColor = color.RGBA{28, 31, 46, 255}
	highlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	coordinateColor = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
)

// RenderPNG draws the position described by fen.
func RenderPNG(ctx context.Context, fen string, opts Options) ([]byte, error) {
	board, err := chessrules.BoardFromFEN(fen)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := boardSize + margin*2
	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)
	origin := image.Point{X: margin, Y: margin}

	drawSquares(img, origin)
	if h := opts.Highlight; h != nil {
		drawOverlay(img, squareRect(h.From, origin, opts.Flip), highlightFill)
		drawOverlay(img, squareRect(h.To, origin, opts.Flip), highlightFill)
	}
	for sq, pc := range board {
		if err := drawPiece(img, squareRect(sq, origin, opts.Flip), pc); err != nil {
			return nil, err
		}
	}
	drawCoordinates(img, origin, opts.Flip)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			clr := lightSquare
			if (row+col)%2 == 1 {
				clr = darkSquare
			}
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

// squareRect maps a square to pixels; rank 8 is the top row unless flipped.
func squareRect(sq chessrules.Square, origin image.Point, flip bool) image.Rectangle {
	col, row := sq.File, 7-sq.Rank
	if flip {
		col, row = 7-sq.File, sq.Rank
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawPiece(img *image.RGBA, rect image.Rectangle, pc chessrules.Piece) error {
	disc, err := pieceDisc(pc.IsWhite(), rect.Dx())
	if err != nil {
		return err
	}
	imagedraw.Draw(img, rect, disc, image.Point{}, imagedraw.Over)

	ink := color.Color(color.Black)
	if !pc.IsWhite() {
		ink = color.White
	}
	drawCenteredText(img, rect, strings.ToUpper(string(rune(pc))), ink)
	return nil
}

func drawCoordinates(img *image.RGBA, origin image.Point, flip bool) {
	for i := 0; i < 8; i++ {
		file, rank := i, 7-i
		if flip {
			file, rank = 7-i, i
		}
		x := origin.X + i*squareSize
		y := origin.Y + i*squareSize
		drawCenteredText(img, image.Rect(x, origin.Y+boardSize, x+squareSize, origin.Y+boardSize+margin), string(rune('a'+file)), coordinateColor)
		drawCenteredText(img, image.Rect(0, y, margin, y+squareSize), string(rune('1'+rank)), coordinateColor)
	}
}

func drawCenteredText(dst imagedraw.Image, rect image.Rectangle, text string, clr color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(clr), Face: face}
	width := d.MeasureString(text).Round()
	m := face.Metrics()
	height := (m.Ascent + m.Descent).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	y := rect.Min.Y + (rect.Dy()-height)/2 + m.Ascent.Round()
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}
