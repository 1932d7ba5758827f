package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/FlavioCFOliveira/convnet/internal/net"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// CSVOptions describes a label-first image CSV such as the Kaggle MNIST
// export: label,pixel0,...,pixelN.
type CSVOptions struct {
	Width     int
	Height    int
	Classes   int
	HasHeader bool
	// MaxPixel is the pixel value mapped to 1. Zero means 255.
	MaxPixel float32
	// Limit stops after this many samples; zero means all.
	Limit int
}

// LoadCSV loads samples from a label-first CSV file.
func LoadCSV(filename string, opts CSVOptions) ([]net.Sample, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return ReadCSV(file, opts)
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, opts CSVOptions) ([]net.Sample, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Classes <= 0 {
		return nil, fmt.Errorf("invalid csv options %+v", opts)
	}
	maxPixel := opts.MaxPixel
	if maxPixel == 0 {
		maxPixel = 255
	}
	numCols := 1 + opts.Width*opts.Height

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = numCols
	reader.ReuseRecord = true

	var samples []net.Sample
	for row := 0; opts.Limit <= 0 || len(samples) < opts.Limit; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if row == 0 && opts.HasHeader {
			continue
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse label at row %d: %w", row, err)
		}
		if label < 0 || label >= opts.Classes {
			return nil, fmt.Errorf("label %d out of range [0, %d) at row %d", label, opts.Classes, row)
		}

		img := tensor.New3(opts.Width, opts.Height, 1)
		d := img.Data()
		for j, valStr := range record[1:] {
			val, err := strconv.ParseFloat(valStr, 32)
			if err != nil {
				return nil, fmt.Errorf("failed to parse value at row %d, col %d: %w", row, j+1, err)
			}
			d[j] = float32(val) / maxPixel
		}
		samples = append(samples, net.Sample{Input: img, Label: OneHot(label, opts.Classes)})
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("csv has no data rows")
	}
	return samples, nil
}
