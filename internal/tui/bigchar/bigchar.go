// Package bigchar renders hanzi as large block art using half-block characters.
package bigchar

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FontPaths are the CJK fonts tried, in order, the first time a glyph is rendered.
var FontPaths = []string{
	// macOS
	"/System/Library/Fonts/STHeiti Light.ttc",
	"/System/Library/Fonts/PingFang.ttc",
	"/System/Library/Fonts/Hiragino Sans GB.ttc",
	"/Library/Fonts/Arial Unicode.ttf",
	// Linux
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	// Windows
	"C:\\Windows\\Fonts\\msyh.ttc",
	"C:\\Windows\\Fonts\\simsun.ttc",
}

// threshold is the brightness above which a half cell is drawn.
const threshold = 40

var (
	loadOnce   sync.Once
	loadedFace font.Face

	mu    sync.Mutex
	cache = make(map[string]string)
)

func face() font.Face {
	loadOnce.Do(func() {
		for _, path := range FontPaths {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if f := parseFace(data); f != nil {
				loadedFace = f
				return
			}
		}
	})
	return loadedFace
}

// parseFace accepts a font collection or a single font.
func parseFace(data []byte) font.Face {
	opts := &opentype.FaceOptions{Size: 64, DPI: 72}

	if coll, err := opentype.ParseCollection(data); err == nil && coll.NumFonts() > 0 {
		if fnt, err := coll.Font(0); err == nil {
			if f, err := opentype.NewFace(fnt, opts); err == nil {
				return f
			}
		}
	}
	if fnt, err := opentype.Parse(data); err == nil {
		if f, err := opentype.NewFace(fnt, opts); err == nil {
			return f
		}
	}
	return nil
}

// IsAvailable reports whether a CJK font was found.
func IsAvailable() bool {
	return face() != nil
}

// Render draws text in a block of cols by rows terminal cells, splitting the
// width evenly between characters. It returns "" when no font is available
// or the block is too small to be legible.
func Render(text string, cols, rows int) string {
	runes := []rune(text)
	if len(runes) == 0 || face() == nil {
		return ""
	}
	per := cols / len(runes)
	if per < 6 || rows < 3 {
		return ""
	}

	key := fmt.Sprintf("%s/%d/%d", text, per, rows)
	mu.Lock()
	defer mu.Unlock()
	if cached, ok := cache[key]; ok {
		return cached
	}

	blocks := make([][]string, len(runes))
	for i, r := range runes {
		blocks[i] = strings.Split(renderRune(face(), r, per, rows), "\n")
	}
	lines := make([]string, rows)
	for row := range lines {
		var b strings.Builder
		for _, blk := range blocks {
			b.WriteString(blk[row])
		}
		lines[row] = b.String()
	}
	out := strings.Join(lines, "\n")
	cache[key] = out
	return out
}

// renderRune draws a single glyph and converts it to half-blocks.
func renderRune(f font.Face, r rune, cols, rows int) string {
	bounds, _, _ := f.GlyphBounds(r)
	glyphWidth := (bounds.Max.X - bounds.Min.X).Ceil()
	glyphHeight := (bounds.Max.Y - bounds.Min.Y).Ceil()

	padding := 4
	srcWidth := max(glyphWidth+padding*2, 64)
	srcHeight := max(glyphHeight+padding*2, 64)

	src := image.NewGray(image.Rect(0, 0, srcWidth, srcHeight))
	draw.Draw(src, src.Bounds(), &image.Uniform{color.Black}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  src,
		Src:  image.White,
		Face: f,
		Dot:  fixed.P((srcWidth-glyphWidth)/2-bounds.Min.X.Floor(), srcHeight-padding-bounds.Max.Y.Ceil()),
	}
	d.DrawString(string(r))

	// Two vertical pixels per cell
	return halfBlocks(scaleDown(src, cols, rows*2), cols, rows)
}

// scaleDown scales a grayscale image using area averaging.
func scaleDown(src *image.Gray, dstWidth, dstHeight int) *image.Gray {
	srcWidth := src.Bounds().Max.X
	srcHeight := src.Bounds().Max.Y
	dst := image.NewGray(image.Rect(0, 0, dstWidth, dstHeight))

	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for dy := 0; dy < dstHeight; dy++ {
		for dx := 0; dx < dstWidth; dx++ {
			sx1, sy1 := int(float64(dx)*xRatio), int(float64(dy)*yRatio)
			sx2 := min(int(float64(dx+1)*xRatio), srcWidth)
			sy2 := min(int(float64(dy+1)*yRatio), srcHeight)

			var sum, count int
			for sy := sy1; sy < sy2; sy++ {
				for sx := sx1; sx < sx2; sx++ {
					sum += int(src.GrayAt(sx, sy).Y)
					count++
				}
			}
			if count > 0 {
				dst.SetGray(dx, dy, color.Gray{Y: uint8(sum / count)})
			}
		}
	}
	return dst
}

// halfBlocks converts a grayscale image to rows of ▀▄█ characters.
func halfBlocks(img *image.Gray, cols, rows int) string {
	var b strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			top := brightness(img, col, row*2) > threshold
			bottom := brightness(img, col, row*2+1) > threshold
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteRune(' ')
			}
		}
		if row < rows-1 {
			b.WriteRune('\n')
		}
	}
	return b.String()
}

func brightness(img *image.Gray, x, y int) uint8 {
	if x < 0 || y < 0 || x >= img.Bounds().Max.X || y >= img.Bounds().Max.Y {
		return 0
	}
	return img.GrayAt(x, y).Y
}
