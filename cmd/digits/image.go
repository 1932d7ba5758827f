package main

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"

	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

func loadPNG(path string, width, height int, invert bool) (*tensor.Tensor3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return toTensor(img, width, height, invert), nil
}

// toTensor resamples img to width x height grayscale in [0,1] with
// nearest-neighbour sampling. invert maps dark ink on a light background to
// the light-on-dark convention of MNIST.
func toTensor(img image.Image, width, height int, invert bool) *tensor.Tensor3 {
	b := img.Bounds()
	out := tensor.New3(width, height, 1)
	for y := 0; y < height; y++ {
		sy := b.Min.Y + y*b.Dy()/height
		for x := 0; x < width; x++ {
			sx := b.Min.X + x*b.Dx()/width
			g := color.Gray16Model.Convert(img.At(sx, sy)).(color.Gray16)
			v := float32(g.Y) / 0xffff
			if invert {
				v = 1 - v
			}
			out.Set(x, y, 0, v)
		}
	}
	return out
}
