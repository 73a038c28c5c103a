// Package imaging prepares rasterized page images for recognition. Every
// transform is a pure function of its input image and fixed parameters.
package imaging

import (
	"image"
	"image/draw"
	"math"
)

const (
	contrastFactor     = 1.5
	sharpenFactor      = 1.5
	thresholdBlockSize = 11
	thresholdOffset    = 2
	// Skew below half a degree is left alone; rotation resampling would cost
	// more fidelity than it recovers.
	deskewMinAngle = 0.5
)

type Preprocessor struct{}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Prepare runs the full transform chain: grayscale, contrast, adaptive
// threshold, deskew, sharpen.
func (p *Preprocessor) Prepare(src image.Image) *image.Gray {
	gray := Grayscale(src)
	gray = AdjustContrast(gray, contrastFactor)
	binary := AdaptiveThreshold(gaussianBlur5x5(gray), thresholdBlockSize, thresholdOffset)
	if angle := EstimateSkew(binary); math.Abs(angle) > deskewMinAngle {
		binary = Rotate(binary, angle)
	}
	return Sharpen(binary, sharpenFactor)
}

// Grayscale converts src to 8-bit luminance.
func Grayscale(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		out := image.NewGray(g.Bounds())
		copy(out.Pix, g.Pix)
		return out
	}
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)
	return out
}

// AdjustContrast scales pixel distance from the image mean by factor.
// factor 1.0 is the identity; values above 1.0 increase contrast.
func AdjustContrast(src *image.Gray, factor float64) *image.Gray {
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	if len(src.Pix) == 0 {
		return out
	}

	var sum uint64
	for _, v := range src.Pix {
		sum += uint64(v)
	}
	mean := float64(sum) / float64(len(src.Pix))

	for i, v := range src.Pix {
		out.Pix[i] = clampByte(mean + factor*(float64(v)-mean))
	}
	return out
}

// AdaptiveThreshold binarizes src against a Gaussian-weighted local mean over
// a blockSize neighborhood, less offset: 255 where the pixel exceeds its
// local threshold, else 0.
func AdaptiveThreshold(src *image.Gray, blockSize, offset int) *image.Gray {
	kernel := gaussianKernel1D(blockSize)
	blurred := separableConvolve(src, kernel)

	out := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		if float64(v) > blurred[i]-float64(offset) {
			out.Pix[i] = 255
		}
	}
	return out
}

// EstimateSkew measures the tilt of the non-zero pixels via their
// minimum-area bounding rectangle. The returned angle is in (-45, 45].
func EstimateSkew(binary *image.Gray) float64 {
	pts := foregroundExtremes(binary)
	if len(pts) < 3 {
		return 0
	}
	angle := minAreaRectAngle(pts)
	if angle < -45 {
		angle = 90 + angle
	}
	return angle
}

// Rotate resamples src rotated by angle degrees about the image center using
// bicubic interpolation with edge-replicate sampling.
func Rotate(src *image.Gray, angle float64) *image.Gray {
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	w, h := bounds.Dx(), bounds.Dy()
	cx := float64(w-1) / 2
	cy := float64(h-1) / 2

	theta := angle * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)

	for y := 0; y < h; y++ {
		dy := float64(y) - cy
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			sx := cos*dx - sin*dy + cx
			sy := sin*dx + cos*dy + cy
			out.Pix[y*out.Stride+x] = sampleBicubic(src, sx, sy)
		}
	}
	return out
}

// Sharpen blends src away from a smoothed copy: factor 1.0 is the identity,
// larger values amplify edges.
func Sharpen(src *image.Gray, factor float64) *image.Gray {
	smoothed := smooth3x3(src)
	out := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		out.Pix[i] = clampByte(smoothed[i] + factor*(float64(v)-smoothed[i]))
	}
	return out
}

// foregroundExtremes collects the leftmost and rightmost non-zero pixel per
// row. The convex hull of these extremes equals the hull of all foreground
// pixels, at a fraction of the input size.
func foregroundExtremes(binary *image.Gray) []point {
	bounds := binary.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pts := make([]point, 0, 2*h)
	for y := 0; y < h; y++ {
		row := binary.Pix[y*binary.Stride : y*binary.Stride+w]
		first, last := -1, -1
		for x, v := range row {
			if v > 0 {
				if first < 0 {
					first = x
				}
				last = x
			}
		}
		if first >= 0 {
			pts = append(pts, point{X: float64(first), Y: float64(y)})
			if last != first {
				pts = append(pts, point{X: float64(last), Y: float64(y)})
			}
		}
	}
	return pts
}

// gaussianBlur5x5 applies the binomial 1-4-6-4-1 separable kernel.
func gaussianBlur5x5(src *image.Gray) *image.Gray {
	kernel := []float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}
	blurred := separableConvolve(src, kernel)
	out := image.NewGray(src.Bounds())
	for i, v := range blurred {
		out.Pix[i] = clampByte(v)
	}
	return out
}

// gaussianKernel1D builds a normalized kernel of the given odd size with
// sigma derived from the size the way adaptive thresholding expects
// (0.3*((size-1)*0.5 - 1) + 0.8).
func gaussianKernel1D(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	half := size / 2
	kernel := make([]float64, size)
	var sum float64
	for i := range kernel {
		x := float64(i - half)
		kernel[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// separableConvolve applies kernel horizontally then vertically with
// replicated borders, returning float intensities indexed like src.Pix.
func separableConvolve(src *image.Gray, kernel []float64) []float64 {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	half := len(kernel) / 2

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for x := 0; x < w; x++ {
			var acc float64
			for k, kv := range kernel {
				sx := clampInt(x+k-half, 0, w-1)
				acc += kv * float64(row[sx])
			}
			tmp[y*w+x] = acc
		}
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k, kv := range kernel {
				sy := clampInt(y+k-half, 0, h-1)
				acc += kv * tmp[sy*w+x]
			}
			out[y*w+x] = acc
		}
	}
	return out
}

// smooth3x3 applies the 3x3 smoothing kernel (1 1 1; 1 5 1; 1 1 1)/13 with
// replicated borders.
func smooth3x3(src *image.Gray) []float64 {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]float64, w*h)
	weights := [3][3]float64{{1, 1, 1}, {1, 5, 1}, {1, 1, 1}}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for ky := -1; ky <= 1; ky++ {
				sy := clampInt(y+ky, 0, h-1)
				for kx := -1; kx <= 1; kx++ {
					sx := clampInt(x+kx, 0, w-1)
					acc += weights[ky+1][kx+1] * float64(src.Pix[sy*src.Stride+sx])
				}
			}
			out[y*w+x] = acc / 13
		}
	}
	return out
}

// sampleBicubic interpolates src at (x, y) with a Catmull-Rom style kernel
// (a = -0.75) and clamped coordinates, which replicates edges.
func sampleBicubic(src *image.Gray, x, y float64) uint8 {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	var acc, wsum float64
	for j := -1; j <= 2; j++ {
		wy := cubicWeight(float64(j) - fy)
		if wy == 0 {
			continue
		}
		sy := clampInt(y0+j, 0, h-1)
		for i := -1; i <= 2; i++ {
			wx := cubicWeight(float64(i) - fx)
			if wx == 0 {
				continue
			}
			sx := clampInt(x0+i, 0, w-1)
			wgt := wx * wy
			acc += wgt * float64(src.Pix[sy*src.Stride+sx])
			wsum += wgt
		}
	}
	if wsum == 0 {
		return 0
	}
	return clampByte(acc / wsum)
}

func cubicWeight(t float64) float64 {
	const a = -0.75
	t = math.Abs(t)
	switch {
	case t <= 1:
		return (a+2)*t*t*t - (a+3)*t*t + 1
	case t < 2:
		return a*t*t*t - 5*a*t*t + 8*a*t - 4*a
	default:
		return 0
	}
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
