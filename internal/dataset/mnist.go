package dataset

import (
	"fmt"

	"github.com/petar/GoMNIST"

	"github.com/FlavioCFOliveira/convnet/internal/net"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// Classes is the number of MNIST digit classes.
const Classes = 10

// LoadMNIST reads the four gzipped IDX files of the MNIST distribution from dir
// (train-images-idx3-ubyte.gz and friends).
func LoadMNIST(dir string) (train, test []net.Sample, err error) {
	trainSet, testSet, err := GoMNIST.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load mnist from %s: %w", dir, err)
	}
	if train, err = FromSet(trainSet); err != nil {
		return nil, nil, fmt.Errorf("mnist train set: %w", err)
	}
	if test, err = FromSet(testSet); err != nil {
		return nil, nil, fmt.Errorf("mnist test set: %w", err)
	}
	return train, test, nil
}

// FromSet converts a GoMNIST set into samples with pixels scaled to [0,1].
func FromSet(set *GoMNIST.Set) ([]net.Sample, error) {
	samples := make([]net.Sample, set.Count())
	for i := range samples {
		raw, label := set.Get(i)
		if int(label) >= Classes {
			return nil, fmt.Errorf("image %d: label %d out of range", i, label)
		}
		img, err := Image(raw, set.NCol, set.NRow)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		samples[i] = net.Sample{Input: img, Label: OneHot(int(label), Classes)}
	}
	return samples, nil
}

// Image converts row-major 8-bit grayscale pixels into a (width,height,1)
// tensor scaled to [0,1]. Pixel r lands at x = r % width, y = r / width.
func Image(pixels []byte, width, height int) (*tensor.Tensor3, error) {
	if len(pixels) != width*height {
		return nil, fmt.Errorf("got %d pixels for a %dx%d image", len(pixels), width, height)
	}
	img := tensor.New3(width, height, 1)
	d := img.Data()
	for r, p := range pixels {
		d[r] = float32(p) / 255
	}
	return img, nil
}
