package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Decode reads any registered format and returns an RGB image with the
// alpha channel flattened onto white.
func Decode(data []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0), nil
}

// Preprocess raises contrast by 20% and applies a light sharpen.
func Preprocess(img image.Image) *image.NRGBA {
	out := imaging.AdjustContrast(img, 20)
	return imaging.Sharpen(out, 0.5)
}

// EncodeJPEG renders img as a quality 90 JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	minBrightness = 30
	maxBrightness = 225
	minContrast   = 20
	minPixels     = 200 * 200
)

// Quality computes mean brightness and contrast (standard deviation) over
// every RGB sample.
func Quality(img *image.NRGBA) QualityReport {
	b := img.Bounds()
	report := QualityReport{Width: b.Dx(), Height: b.Dy(), Issues: []string{}}

	var sum, sumSq float64
	var n int
	forEachPixel(img, func(r, g, bl uint8) {
		for _, v := range [3]float64{float64(r), float64(g), float64(bl)} {
			sum += v
			sumSq += v * v
		}
		n += 3
	})
	if n > 0 {
		mean := sum / float64(n)
		report.Brightness = mean
		report.Contrast = math.Sqrt(math.Max(sumSq/float64(n)-mean*mean, 0))
	}

	switch {
	case report.Brightness < minBrightness:
		report.Issues = append(report.Issues, "Image too dark")
	case report.Brightness > maxBrightness:
		report.Issues = append(report.Issues, "Image too bright")
	}
	if report.Contrast < minContrast {
		report.Issues = append(report.Issues, "Low contrast")
	}
	if report.Width*report.Height < minPixels {
		report.Issues = append(report.Issues, "Resolution too low")
	}
	return report
}

// ChannelMeans returns the average R, G and B values.
func ChannelMeans(img *image.NRGBA) [3]float64 {
	var sums [3]float64
	var n float64
	forEachPixel(img, func(r, g, b uint8) {
		sums[0] += float64(r)
		sums[1] += float64(g)
		sums[2] += float64(b)
		n++
	})
	if n == 0 {
		return sums
	}
	return [3]float64{sums[0] / n, sums[1] / n, sums[2] / n}
}

func forEachPixel(img *image.NRGBA, fn func(r, g, b uint8)) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			fn(row[x], row[x+1], row[x+2])
		}
	}
}

// Hex formats an RGB triple as #rrggbb.
func Hex(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
