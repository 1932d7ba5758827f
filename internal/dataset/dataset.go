// Package dataset turns labelled image collections into training samples:
// MNIST IDX and CSV loading, one-hot labels, shuffling, splitting and
// augmentation.
package dataset

import (
	"fmt"
	"math/rand"

	"github.com/FlavioCFOliveira/convnet/internal/net"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// OneHot returns a (classes,1,1) vector with a 1 at label.
func OneHot(label, classes int) *tensor.Tensor3 {
	if label < 0 || label >= classes {
		panic(fmt.Errorf("%w: label %d outside [0,%d)", tensor.ErrOutOfBounds, label, classes))
	}
	t := tensor.New3(classes, 1, 1)
	t.Set(label, 0, 0, 1)
	return t
}

// Shuffle permutes samples in place.
func Shuffle(samples []net.Sample, rng *rand.Rand) {
	rng.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })
}

// Split divides samples into the first ratio share and the rest.
// The returned slices share storage with samples.
func Split(samples []net.Sample, ratio float64) (train, test []net.Sample) {
	if ratio <= 0 {
		return nil, samples
	}
	if ratio >= 1 {
		return samples, nil
	}
	idx := int(float64(len(samples)) * ratio)
	return samples[:idx], samples[idx:]
}

// Limit returns at most n samples; n <= 0 means all.
func Limit(samples []net.Sample, n int) []net.Sample {
	if n <= 0 || n >= len(samples) {
		return samples
	}
	return samples[:n]
}

// Augment returns a copy of img shifted by a random whole-pixel offset in
// [-2,2] on each axis and zoomed by a random factor in [0.9,1.1] about the
// image centre. Sampling is nearest-neighbour; pixels mapped from outside the
// source are zero. Every channel gets the same transform.
func Augment(img *tensor.Tensor3, rng *rand.Rand) *tensor.Tensor3 {
	dx := rng.Intn(5) - 2
	dy := rng.Intn(5) - 2
	scale := 0.9 + 0.2*rng.Float64()
	return Transform(img, dx, dy, scale)
}

// Transform applies the shift and zoom used by Augment with fixed parameters.
// Output pixel (x,y) reads source pixel
// round((x-cx)/scale + cx - dx, (y-cy)/scale + cy - dy).
func Transform(img *tensor.Tensor3, dx, dy int, scale float64) *tensor.Tensor3 {
	w, h, c := img.Shape()
	out := tensor.New3(w, h, c)
	cx := float64(w-1) / 2
	cy := float64(h-1) / 2

	for y := 0; y < h; y++ {
		sy := roundHalfAway((float64(y)-cy)/scale + cy - float64(dy))
		if sy < 0 || sy >= h {
			continue
		}
		for x := 0; x < w; x++ {
			sx := roundHalfAway((float64(x)-cx)/scale + cx - float64(dx))
			if sx < 0 || sx >= w {
				continue
			}
			for z := 0; z < c; z++ {
				out.Set(x, y, z, img.At(sx, sy, z))
			}
		}
	}
	return out
}

func roundHalfAway(v float64) int {
	if v < 0 {
		return -int(-v + 0.5)
	}
	return int(v + 0.5)
}
