package net

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/FlavioCFOliveira/convnet/internal/activations"
	"github.com/FlavioCFOliveira/convnet/internal/layer"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// Model file layout: a sequence of records, each a little-endian int32 layer
// tag (layer.Kind), the layer's int32 dimension fields, then its float32
// parameters. The stream ends at EOF on a record boundary.
//
//	Conv2D         filterCount, filterSize, filterDepth | filters, biases
//	Dense          inputSize, outputSize               | weights, biases
//	MaxPool2D      poolSize, poolDepth                 |
//	Flatten        inputWidth, inputHeight, inputDepth |
//	GlobalAvgPool  inputWidth, inputHeight             |

var byteOrder = binary.LittleEndian

// maxElements bounds any single parameter block read from a model file.
const maxElements = 1 << 28

var (
	// ErrIO reports a model file that cannot be opened, written or fully read.
	ErrIO = errors.New("model i/o failure")
	// ErrUnknownFormat reports a record that does not describe a known layer.
	ErrUnknownFormat = errors.New("unknown model format")
)

// FormatError describes a bad record in a model stream.
// It matches ErrIO or ErrUnknownFormat with errors.Is, as well as its cause.
type FormatError struct {
	Record int   // zero-based record index
	Tag    int32 // raw tag of the record, when it was read
	Kind   error // ErrIO or ErrUnknownFormat
	Detail string
	Err    error // underlying cause, may be nil
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%v: record %d (tag %d): %s", e.Kind, e.Record, e.Tag, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// SaveWeights writes the layer stack to path. Failures are logged and returned.
func (n *Network) SaveWeights(path string) error {
	err := n.saveWeights(path)
	if err != nil {
		n.logger.Printf("save weights %s: %v", path, err)
	}
	return err
}

func (n *Network) saveWeights(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrIO, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := n.Encode(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// LoadWeights replaces the layer stack with the one stored at path.
// On failure the error is logged and returned and the current stack is kept.
func (n *Network) LoadWeights(path string) error {
	err := n.loadWeights(path)
	if err != nil {
		n.logger.Printf("load weights %s: %v", path, err)
	}
	return err
}

func (n *Network) loadWeights(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()
	return n.Decode(bufio.NewReader(f))
}

// Encode writes every layer record to w.
func (n *Network) Encode(w io.Writer) error {
	for i, l := range n.layers {
		if err := encodeLayer(w, l); err != nil {
			return fmt.Errorf("encode layer %d (%s): %w", i, l.Kind(), err)
		}
	}
	return nil
}

func encodeLayer(w io.Writer, l layer.Layer) error {
	var (
		dims    []int
		payload [][]float32
	)
	switch v := l.(type) {
	case *layer.Conv2D:
		dims = []int{v.FilterCount(), v.FilterSize(), v.FilterDepth()}
		payload = [][]float32{v.Filters().Data(), v.Biases().Data()}
	case *layer.Dense:
		dims = []int{v.InSize(), v.OutSize()}
		payload = [][]float32{v.Weights().Data(), v.Biases().Data()}
	case *layer.MaxPool2D:
		dims = []int{v.PoolSize(), v.PoolDepth()}
	case *layer.Flatten:
		w, h, d := v.InputShape()
		dims = []int{w, h, d}
	case *layer.GlobalAvgPool:
		dims = []int{v.InputWidth(), v.InputHeight()}
	default:
		return fmt.Errorf("%w: %T has no record layout", ErrUnknownFormat, l)
	}

	header := make([]int32, 0, 1+len(dims))
	header = append(header, int32(l.Kind()))
	for _, d := range dims {
		header = append(header, int32(d))
	}
	if err := binary.Write(w, byteOrder, header); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	for _, p := range payload {
		if err := binary.Write(w, byteOrder, p); err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	}
	return nil
}

// Decode reads layer records from r until EOF and, if every record is valid,
// replaces the layer stack. Dense and Conv2D records take the activation of
// the current layer at the same position when it has the same type, and
// ReLU otherwise, since the file does not store activations.
func (n *Network) Decode(r io.Reader) error {
	var layers []layer.Layer
	for i := 0; ; i++ {
		var tag int32
		err := binary.Read(r, byteOrder, &tag)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &FormatError{Record: i, Tag: -1, Kind: ErrIO, Detail: "reading tag", Err: err}
		}

		var prev layer.Layer
		if i < len(n.layers) {
			prev = n.layers[i]
		}
		l, err := decodeLayer(r, layer.Kind(tag), prev)
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				fe.Record, fe.Tag = i, tag
			}
			return err
		}
		layers = append(layers, l)
	}
	n.layers = layers
	return nil
}

func decodeLayer(r io.Reader, kind layer.Kind, prev layer.Layer) (layer.Layer, error) {
	switch kind {
	case layer.KindConvolutional:
		d, err := readDims(r, 3)
		if err != nil {
			return nil, err
		}
		count, size, depth := d[0], d[1], d[2]
		fanIn, err := elements(size, size, depth)
		if err != nil {
			return nil, err
		}
		filters, err := readFloats(r, count, fanIn)
		if err != nil {
			return nil, err
		}
		biases, err := readFloats(r, count, 1)
		if err != nil {
			return nil, err
		}
		var act activations.Activation
		if p, ok := prev.(*layer.Conv2D); ok {
			act = p.Activation()
		}
		c := layer.NewConv2D(size, depth, count, act)
		c.SetFilters(tensor.MatrixFrom(count, fanIn, filters))
		c.SetBiases(tensor.MatrixFrom(count, 1, biases))
		return c, nil

	case layer.KindDense:
		d, err := readDims(r, 2)
		if err != nil {
			return nil, err
		}
		in, out := d[0], d[1]
		weights, err := readFloats(r, out, in)
		if err != nil {
			return nil, err
		}
		biases, err := readFloats(r, out, 1)
		if err != nil {
			return nil, err
		}
		var act activations.Activation
		if p, ok := prev.(*layer.Dense); ok {
			act = p.Activation()
		}
		dl := layer.NewDense(in, out, act)
		dl.SetWeights(tensor.MatrixFrom(out, in, weights))
		dl.SetBiases(tensor.MatrixFrom(out, 1, biases))
		return dl, nil

	case layer.KindMaxPool:
		d, err := readDims(r, 2)
		if err != nil {
			return nil, err
		}
		return layer.NewMaxPool2D(d[0], d[1]), nil

	case layer.KindFlatten:
		d, err := readDims(r, 3)
		if err != nil {
			return nil, err
		}
		if _, err := elements(d...); err != nil {
			return nil, err
		}
		return layer.NewFlatten(d[0], d[1], d[2]), nil

	case layer.KindGAP:
		d, err := readDims(r, 2)
		if err != nil {
			return nil, err
		}
		return layer.NewGlobalAvgPool(d[0], d[1]), nil
	}
	return nil, &FormatError{Kind: ErrUnknownFormat, Detail: "unrecognized layer tag"}
}

// readDims reads k positive int32 fields.
func readDims(r io.Reader, k int) ([]int, error) {
	raw := make([]int32, k)
	if err := binary.Read(r, byteOrder, raw); err != nil {
		return nil, truncated("reading dimensions", err)
	}
	dims := make([]int, k)
	for i, v := range raw {
		if v <= 0 {
			return nil, &FormatError{Kind: ErrUnknownFormat, Detail: fmt.Sprintf("non-positive dimension %v", raw)}
		}
		dims[i] = int(v)
	}
	return dims, nil
}

// elements multiplies dims, rejecting products above maxElements.
func elements(dims ...int) (int, error) {
	total := 1
	for _, d := range dims {
		if d > maxElements/total {
			return 0, &FormatError{Kind: ErrUnknownFormat, Detail: fmt.Sprintf("dimensions %v exceed %d elements", dims, maxElements)}
		}
		total *= d
	}
	return total, nil
}

func readFloats(r io.Reader, rows, cols int) ([]float32, error) {
	n, err := elements(rows, cols)
	if err != nil {
		return nil, err
	}
	data := make([]float32, n)
	if err := binary.Read(r, byteOrder, data); err != nil {
		return nil, truncated("reading parameters", err)
	}
	return data, nil
}

// truncated maps an EOF inside a record to io.ErrUnexpectedEOF.
func truncated(detail string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return &FormatError{Kind: ErrIO, Detail: detail, Err: err}
}
