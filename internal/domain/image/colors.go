package image

import (
	"image"
	"math"
	"math/rand"
	"sort"

	"github.com/disintegration/imaging"
)

const (
	colorSampleEdge = 128
	kmeansSeed      = 42
	kmeansMaxIter   = 25
)

type point [3]float64

func sqDist(a, b point) float64 {
	d0, d1, d2 := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return d0*d0 + d1*d1 + d2*d2
}

// DominantColors clusters the pixels into k colors and returns them
// ordered by share, largest first. Results are deterministic for a given
// image. Clusters that end up empty are dropped.
func DominantColors(img *image.NRGBA, k int) []Color {
	if k <= 0 {
		return nil
	}
	sample := img
	b := img.Bounds()
	if b.Dx() > colorSampleEdge || b.Dy() > colorSampleEdge {
		sample = imaging.Fit(img, colorSampleEdge, colorSampleEdge, imaging.Box)
	}

	var points []point
	forEachPixel(sample, func(r, g, b uint8) {
		points = append(points, point{float64(r), float64(g), float64(b)})
	})
	if len(points) == 0 {
		return nil
	}
	if k > len(points) {
		k = len(points)
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	centers := seedCenters(points, k, rng)
	labels := make([]int, len(points))

	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.MaxFloat64
			for c, center := range centers {
				if d := sqDist(p, center); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		sums := make([]point, k)
		counts := make([]int, k)
		for i, p := range points {
			c := labels[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			sums[c][2] += p[2]
			counts[c]++
		}
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			n := float64(counts[c])
			centers[c] = point{sums[c][0] / n, sums[c][1] / n, sums[c][2] / n}
		}
	}

	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}

	out := make([]Color, 0, k)
	total := float64(len(points))
	for c, center := range centers {
		if counts[c] == 0 {
			continue
		}
		r, g, bl := clampByte(center[0]), clampByte(center[1]), clampByte(center[2])
		out = append(out, Color{
			R: r, G: g, B: bl,
			Hex:        Hex(r, g, bl),
			Percentage: float64(counts[c]) / total * 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percentage > out[j].Percentage })
	return out
}

// seedCenters is k-means++ initialisation.
func seedCenters(points []point, k int, rng *rand.Rand) []point {
	centers := make([]point, 0, k)
	centers = append(centers, points[rng.Intn(len(points))])

	dist := make([]float64, len(points))
	for len(centers) < k {
		var total float64
		for i, p := range points {
			d := math.MaxFloat64
			for _, c := range centers {
				d = math.Min(d, sqDist(p, c))
			}
			dist[i] = d
			total += d
		}
		if total == 0 {
			centers = append(centers, points[rng.Intn(len(points))])
			continue
		}
		target := rng.Float64() * total
		idx := len(points) - 1
		for i, d := range dist {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centers = append(centers, points[idx])
	}
	return centers
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
