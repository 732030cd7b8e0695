package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"

	"github.com/park285/chess-gif-solver/internal/board"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

var ErrNoPieceImage = errors.New("no image for piece")

// PieceSource supplies a size×size raster for a non-empty piece.
type PieceSource interface {
	PieceImage(p board.Piece, size int) (image.Image, error)
}

type pieceCacheKey struct {
	piece board.Piece
	size  int
}

type pieceCache struct {
	mu     sync.RWMutex
	images map[pieceCacheKey]image.Image
}

func (c *pieceCache) get(key pieceCacheKey) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[key]
	return img, ok
}

func (c *pieceCache) put(key pieceCacheKey, img image.Image) {
	c.mu.Lock()
	if c.images == nil {
		c.images = make(map[pieceCacheKey]image.Image)
	}
	c.images[key] = img
	c.mu.Unlock()
}

// SVGPieces rasterizes the embedded vector piece set.
type SVGPieces struct {
	cache pieceCache
}

func NewSVGPieces() *SVGPieces { return &SVGPieces{} }

func (s *SVGPieces) PieceImage(p board.Piece, size int) (image.Image, error) {
	if p == board.Empty || !p.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrNoPieceImage, p)
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid piece size %d", size)
	}
	key := pieceCacheKey{piece: p, size: size}
	if img, ok := s.cache.get(key); ok {
		return img, nil
	}

	name := svgAssetName(p)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, xdraw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	s.cache.put(key, img)
	return img, nil
}

// svgAssetName maps a piece to its embedded file, e.g. assets/pieces/wN.svg.
func svgAssetName(p board.Piece) string {
	prefix := "w"
	if p.Color() == board.Black {
		prefix = "b"
	}
	letter, _ := board.NewPiece(board.White, p.Kind()).Letter()
	return fmt.Sprintf("assets/pieces/%s%c.svg", prefix, letter)
}

// svgColorFixes normalizes color declarations oksvg fails to parse.
var svgColorFixes = strings.NewReplacer(
	"fill:000000", "fill:#000000",
	"fill: 000000", "fill:#000000",
	"stroke: 000000", "stroke:#000000",
	"fill: #", "fill:#",
	"stroke: #", "stroke:#",
	"stop-color: #", "stop-color:#",
)

func sanitizeSVG(svg []byte) []byte {
	return []byte(svgColorFixes.Replace(string(svg)))
}

// PNGDirPieces loads <dir>/<name>.png (for example w_knight.png) and scales it to the
// requested size.
type PNGDirPieces struct {
	dir   string
	cache pieceCache
}

func NewPNGDirPieces(dir string) (*PNGDirPieces, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("piece asset dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("piece asset dir %s is not a directory", dir)
	}
	return &PNGDirPieces{dir: dir}, nil
}

func (s *PNGDirPieces) PieceImage(p board.Piece, size int) (image.Image, error) {
	if p == board.Empty || !p.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrNoPieceImage, p)
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid piece size %d", size)
	}
	key := pieceCacheKey{piece: p, size: size}
	if img, ok := s.cache.get(key); ok {
		return img, nil
	}

	path := filepath.Join(s.dir, p.Name()+".png")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPieceImage, err)
	}
	defer f.Close()
	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)

	s.cache.put(key, dst)
	return dst, nil
}
