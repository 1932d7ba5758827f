// Package convnet is the public entry point: a small convolutional network
// engine with float32 tensors, five layer kinds, softmax output and a
// binary weight format.
package convnet

import (
	"github.com/FlavioCFOliveira/convnet/internal/activations"
	"github.com/FlavioCFOliveira/convnet/internal/dataset"
	"github.com/FlavioCFOliveira/convnet/internal/layer"
	"github.com/FlavioCFOliveira/convnet/internal/net"
	"github.com/FlavioCFOliveira/convnet/internal/opt"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// Re-export common types and functions for easier access
type (
	Network     = net.Network
	Option      = net.Option
	Sample      = net.Sample
	TrainConfig = net.TrainConfig
	EpochStats  = net.EpochStats
	History     = net.History
	Callback    = net.Callback
	Layer       = layer.Layer
	Activation  = activations.Activation
	Scheduler   = opt.Scheduler
	Tensor3     = tensor.Tensor3
	Matrix      = tensor.Matrix
	FormatError = net.FormatError
)

// Errors
var (
	ErrShapeMismatch  = tensor.ErrShapeMismatch
	ErrOutOfBounds    = tensor.ErrOutOfBounds
	ErrDivisionByZero = tensor.ErrDivisionByZero
	ErrIO             = net.ErrIO
	ErrUnknownFormat  = net.ErrUnknownFormat
)

// Network creation
func New(opts ...Option) *Network {
	return net.New(opts...)
}

var (
	WithSeed   = net.WithSeed
	WithLogger = net.WithLogger
)

// Activations
var (
	ReLU     = activations.ReLU{}
	Sigmoid  = activations.Sigmoid{}
	Identity = activations.Identity{}
)

// Layers
func Dense(in, out int, act Activation) Layer {
	return layer.NewDense(in, out, act)
}

func Conv2D(filterSize, filterDepth, filterCount int, act Activation) Layer {
	return layer.NewConv2D(filterSize, filterDepth, filterCount, act)
}

func MaxPool2D(poolSize, poolDepth int) Layer {
	return layer.NewMaxPool2D(poolSize, poolDepth)
}

func Flatten(width, height, depth int) Layer {
	return layer.NewFlatten(width, height, depth)
}

func GlobalAvgPool(width, height int) Layer {
	return layer.NewGlobalAvgPool(width, height)
}

// Tensors
func NewTensor3(width, height, channels int) *Tensor3 {
	return tensor.New3(width, height, channels)
}

func OneHot(label, classes int) *Tensor3 {
	return dataset.OneHot(label, classes)
}

// Schedulers
func ConstantLR(lr float32) Scheduler {
	return opt.NewConstant(lr)
}

func StepLR(initialLR float32, stepSize int, gamma float32) Scheduler {
	return opt.NewStepLR(initialLR, stepSize, gamma)
}

func ExponentialLR(initialLR, gamma float32) Scheduler {
	return opt.NewExponentialLR(initialLR, gamma)
}

// Callbacks
func EarlyStopping(patience int, threshold float64) Callback {
	return net.NewEarlyStopping(patience, threshold)
}

func ModelCheckpoint(filename string) Callback {
	return net.NewModelCheckpoint(filename)
}

func CSVLogger(filename string, append bool) Callback {
	return net.NewCSVLogger(filename, append)
}

func LogEvery(interval int) Callback {
	return net.Logger{Interval: interval}
}
