package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	chartAccent = color.NRGBA{0x23, 0xcc, 0xa2, 0xff}
	chartText   = color.NRGBA{0x2c, 0x3e, 0x50, 0xff}
	chartGrid   = color.NRGBA{0xdd, 0xdd, 0xdd, 0xff}
)

// ChannelChart plots the mean R, G and B values as a line chart and
// returns the PNG base64 encoded.
func ChannelChart(means [3]float64) (string, error) {
	const w, h, pad = 800, 400, 50
	canvas := imaging.New(w, h, color.White)

	plotH := float64(h - 2*pad)
	for i := 0; i <= 5; i++ {
		y := pad + int(plotH*float64(i)/5)
		drawLine(canvas, pad, y, w-pad, y, 1, chartGrid)
		drawText(canvas, 8, y+4, fmt.Sprintf("%3d", 255-51*i), chartText)
	}

	labels := []string{"R", "G", "B"}
	xs := make([]int, 3)
	ys := make([]int, 3)
	for i, m := range means {
		xs[i] = pad + 60 + i*(w-2*pad-120)/2
		ys[i] = pad + int(plotH*(1-math.Min(m, 255)/255))
		drawText(canvas, xs[i]-3, h-pad+20, labels[i], chartText)
	}
	for i := 0; i < 2; i++ {
		drawLine(canvas, xs[i], ys[i], xs[i+1], ys[i+1], 3, chartAccent)
	}
	for i := range xs {
		fillCircle(canvas, xs[i], ys[i], 6, chartAccent)
	}
	drawText(canvas, w/2-54, pad/2, "Color Distribution", chartText)

	return encodePNG(canvas)
}

// PieChart renders the color shares as a pie with per-slice labels and
// returns the PNG base64 encoded.
func PieChart(colors []Color) (string, error) {
	const size = 600
	canvas := imaging.New(size, size, color.White)
	cx, cy, radius := size/2, size/2+20, 220.0

	var total float64
	for _, c := range colors {
		total += c.Percentage
	}
	if total > 0 {
		bounds := make([]float64, len(colors))
		acc := 0.0
		for i, c := range colors {
			acc += c.Percentage / total * 2 * math.Pi
			bounds[i] = acc
		}
		for y := cy - int(radius); y <= cy+int(radius); y++ {
			for x := cx - int(radius); x <= cx+int(radius); x++ {
				dx, dy := float64(x-cx), float64(y-cy)
				if dx*dx+dy*dy > radius*radius {
					continue
				}
				angle := math.Atan2(dy, dx) + math.Pi/2
				if angle < 0 {
					angle += 2 * math.Pi
				}
				for i, upper := range bounds {
					if angle <= upper || i == len(bounds)-1 {
						canvas.SetNRGBA(x, y, color.NRGBA{colors[i].R, colors[i].G, colors[i].B, 0xff})
						break
					}
				}
			}
		}

		start := 0.0
		for i, c := range colors {
			mid := (start+bounds[i])/2 - math.Pi/2
			start = bounds[i]
			lx := cx + int(math.Cos(mid)*radius*0.6)
			ly := cy + int(math.Sin(mid)*radius*0.6)
			drawText(canvas, lx-20, ly, fmt.Sprintf("%.1f%%", c.Percentage), color.White)
			ox := cx + int(math.Cos(mid)*(radius+25))
			oy := cy + int(math.Sin(mid)*(radius+25))
			drawText(canvas, ox-24, oy, fmt.Sprintf("Color %d", i+1), chartText)
		}
	}
	drawText(canvas, size/2-50, 30, "Dominant Colors", chartText)

	return encodePNG(canvas)
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode chart: %w", err)
	}
	return Base64(buf.Bytes()), nil
}

func drawText(dst draw.Image, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func drawLine(dst *image.NRGBA, x0, y0, x1, y1, width int, c color.NRGBA) {
	dx := math.Abs(float64(x1 - x0))
	dy := math.Abs(float64(y1 - y0))
	steps := int(math.Max(dx, dy))
	if steps == 0 {
		fillCircle(dst, x0, y0, width/2, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := x0 + int(math.Round(t*float64(x1-x0)))
		y := y0 + int(math.Round(t*float64(y1-y0)))
		if width <= 1 {
			dst.SetNRGBA(x, y, c)
			continue
		}
		fillCircle(dst, x, y, width/2, c)
	}
}

func fillCircle(dst *image.NRGBA, cx, cy, r int, c color.NRGBA) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				dst.SetNRGBA(cx+x, cy+y, c)
			}
		}
	}
}
