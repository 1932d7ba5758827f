// Command digits trains and tests the handwritten digit classifier.
//
//	digits -mode train -data ./mnist -model mnist_cnn_weights.bin
//	digits -mode test  -data ./mnist -model mnist_cnn_weights.bin
//	digits -mode test  -model mnist_cnn_weights.bin -image seven.png
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"

	"github.com/FlavioCFOliveira/convnet/internal/activations"
	"github.com/FlavioCFOliveira/convnet/internal/dataset"
	"github.com/FlavioCFOliveira/convnet/internal/layer"
	"github.com/FlavioCFOliveira/convnet/internal/net"
	"github.com/FlavioCFOliveira/convnet/internal/opt"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

type config struct {
	mode     string
	data     string
	model    string
	image    string
	invert   bool
	epochs   int
	lr       float64
	decay    float64
	limit    int
	seed     int64
	split    float64
	augment  bool
	csvLog   string
	patience int
}

func main() {
	var cfg config
	flag.StringVar(&cfg.mode, "mode", "", "train or test")
	flag.StringVar(&cfg.data, "data", "", "MNIST directory with the IDX .gz files, or a label-first .csv file")
	flag.StringVar(&cfg.model, "model", "mnist_cnn_weights.bin", "model weights file")
	flag.StringVar(&cfg.image, "image", "", "test mode: classify this PNG instead of the test set")
	flag.BoolVar(&cfg.invert, "invert", false, "test mode: the PNG is dark ink on a light background")
	flag.IntVar(&cfg.epochs, "epochs", 10, "training epochs")
	flag.Float64Var(&cfg.lr, "lr", 0.01, "learning rate")
	flag.Float64Var(&cfg.decay, "decay", 1, "learning rate multiplier applied after every epoch")
	flag.IntVar(&cfg.limit, "limit", 0, "use at most this many training samples (0 = all)")
	flag.Int64Var(&cfg.seed, "seed", 1, "random seed for weights, shuffling and augmentation")
	flag.Float64Var(&cfg.split, "split", 0.8, "train share when the data has no separate test set")
	flag.BoolVar(&cfg.augment, "augment", true, "randomly shift and zoom training images every epoch")
	flag.StringVar(&cfg.csvLog, "csv", "", "write per-epoch stats to this CSV file")
	flag.IntVar(&cfg.patience, "patience", 0, "stop after this many epochs without improvement (0 = never)")
	flag.Parse()

	logger := log.New(os.Stderr, "digits: ", log.LstdFlags)

	var err error
	switch cfg.mode {
	case "train":
		err = train(cfg, logger)
	case "test":
		err = test(cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q: use -mode train or -mode test\n", cfg.mode)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal(err)
	}
}

// buildNetwork returns the LeNet-style digit classifier for 28x28x1 inputs.
func buildNetwork(seed int64, logger *log.Logger) *net.Network {
	n := net.New(net.WithSeed(seed), net.WithLogger(logger))
	n.AddLayer(layer.NewConv2D(3, 1, 8, activations.ReLU{}))    // 26x26x8
	n.AddLayer(layer.NewMaxPool2D(2, 8))                        // 13x13x8
	n.AddLayer(layer.NewConv2D(3, 8, 16, activations.ReLU{}))   // 11x11x16
	n.AddLayer(layer.NewMaxPool2D(2, 16))                       // 5x5x16
	n.AddLayer(layer.NewFlatten(5, 5, 16))                      // 400
	n.AddLayer(layer.NewDense(5*5*16, 120, activations.ReLU{})) // 120
	n.AddLayer(layer.NewDense(120, 84, activations.ReLU{}))     // 84
	n.AddLayer(layer.NewDense(84, 10, activations.Identity{}))  // 10
	return n
}

// loadData returns train and test samples. A CSV file is split by cfg.split;
// an MNIST directory keeps its own test set.
func loadData(cfg config) (train, test []net.Sample, err error) {
	if cfg.data == "" {
		return nil, nil, fmt.Errorf("-data is required")
	}
	if strings.HasSuffix(strings.ToLower(cfg.data), ".csv") {
		all, err := dataset.LoadCSV(cfg.data, dataset.CSVOptions{
			Width:     28,
			Height:    28,
			Classes:   dataset.Classes,
			HasHeader: true,
		})
		if err != nil {
			return nil, nil, err
		}
		dataset.Shuffle(all, rand.New(rand.NewSource(cfg.seed)))
		train, test = dataset.Split(all, cfg.split)
		return dataset.Limit(train, cfg.limit), test, nil
	}

	train, test, err = dataset.LoadMNIST(cfg.data)
	if err != nil {
		return nil, nil, err
	}
	return dataset.Limit(train, cfg.limit), test, nil
}

func train(cfg config, logger *log.Logger) error {
	trainSet, testSet, err := loadData(cfg)
	if err != nil {
		return err
	}
	logger.Printf("training on %d samples, %d held out", len(trainSet), len(testSet))

	n := buildNetwork(cfg.seed, logger)
	n.Summary(os.Stdout, 28, 28, 1)

	callbacks := []net.Callback{net.Logger{Interval: 1}}
	if cfg.csvLog != "" {
		callbacks = append(callbacks, net.NewCSVLogger(cfg.csvLog, false))
	}
	if cfg.patience > 0 {
		callbacks = append(callbacks, net.NewEarlyStopping(cfg.patience, 1e-4))
	}

	tc := net.TrainConfig{
		Epochs:    cfg.epochs,
		Scheduler: opt.NewExponentialLR(float32(cfg.lr), float32(cfg.decay)),
		Shuffle:   true,
		Seed:      cfg.seed,
		Callbacks: callbacks,
	}
	if cfg.augment {
		tc.Augment = dataset.Augment
	}
	if _, err := n.Fit(trainSet, tc); err != nil {
		return err
	}

	if len(testSet) > 0 {
		acc, loss := n.Evaluate(testSet)
		logger.Printf("test accuracy: %.2f%% (loss %.6f)", acc*100, loss)
	}
	return n.SaveWeights(cfg.model)
}

func test(cfg config, logger *log.Logger) error {
	n, err := loadNetwork(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.image != "" {
		img, err := loadPNG(cfg.image, 28, 28, cfg.invert)
		if err != nil {
			return err
		}
		printPrediction(n, img)
		return nil
	}

	_, testSet, err := loadData(cfg)
	if err != nil {
		return err
	}
	acc, loss := n.Evaluate(testSet)
	logger.Printf("test accuracy on %d samples: %.2f%% (loss %.6f)", len(testSet), acc*100, loss)
	return nil
}

// loadNetwork builds the training architecture and loads saved weights into
// it, so every layer keeps the activation it was trained with.
func loadNetwork(cfg config, logger *log.Logger) (*net.Network, error) {
	n := buildNetwork(cfg.seed, logger)
	if err := n.LoadWeights(cfg.model); err != nil {
		return nil, err
	}
	return n, nil
}

func printPrediction(n *net.Network, img *tensor.Tensor3) {
	class, probs := n.Predict(img)
	for digit, p := range probs {
		marker := ""
		if digit == class {
			marker = "  <-"
		}
		fmt.Printf("%d: %6.2f%% %s%s\n", digit, p*100, strings.Repeat("#", int(p*40)), marker)
	}
	fmt.Printf("Prediction: %d\n", class)
}
