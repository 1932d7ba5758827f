package net

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/convnet/internal/activations"
	"github.com/FlavioCFOliveira/convnet/internal/layer"
	"github.com/FlavioCFOliveira/convnet/internal/opt"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

func linearNet(seed int64) *Network {
	n := New(WithSeed(seed), WithLogger(nil))
	n.AddLayer(layer.NewDense(4, 8, activations.ReLU{}))
	n.AddLayer(layer.NewDense(8, 3, activations.Identity{}))
	return n
}

func toySamples() []Sample {
	return []Sample{
		{Input: tensor.Vector(1, 0, 0, 0), Label: oneHot(0, 3)},
		{Input: tensor.Vector(0, 1, 0, 0), Label: oneHot(1, 3)},
		{Input: tensor.Vector(0, 0, 1, 1), Label: oneHot(2, 3)},
	}
}

type recorder struct {
	BaseCallback
	events []string
}

func (r *recorder) OnTrainBegin(*Network) { r.events = append(r.events, "begin") }
func (r *recorder) OnTrainEnd(*Network)   { r.events = append(r.events, "end") }
func (r *recorder) OnEpochBegin(epoch int, _ *Network) {
	r.events = append(r.events, fmt.Sprintf("epoch %d", epoch))
}
func (r *recorder) OnEpochEnd(stats EpochStats, _ *Network) {
	r.events = append(r.events, fmt.Sprintf("done %d", stats.Epoch))
}

func TestFitValidation(t *testing.T) {
	n := linearNet(1)

	_, err := n.Fit(nil, TrainConfig{Epochs: 1})
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = n.Fit(toySamples(), TrainConfig{Epochs: 0})
	assert.ErrorIs(t, err, ErrNoEpochs)
}

func TestFitLearnsToySet(t *testing.T) {
	n := linearNet(7)
	samples := toySamples()

	hist, err := n.Fit(samples, TrainConfig{Epochs: 200, LearningRate: 0.5, Shuffle: true, Seed: 1})
	require.NoError(t, err)
	require.Len(t, hist, 200)

	assert.Less(t, hist[len(hist)-1].Loss, hist[0].Loss)
	acc, loss := n.Evaluate(samples)
	assert.Equal(t, 1.0, acc)
	assert.InDelta(t, hist[len(hist)-1].Loss, loss, 0.05)
}

func TestFitIsReproducible(t *testing.T) {
	cfg := TrainConfig{Epochs: 5, LearningRate: 0.1, Shuffle: true, Seed: 3}

	a, err := linearNet(11).Fit(toySamples(), cfg)
	require.NoError(t, err)
	b, err := linearNet(11).Fit(toySamples(), cfg)
	require.NoError(t, err)

	for i := range a {
		assert.Equal(t, a[i].Loss, b[i].Loss, "epoch %d", i+1)
	}
}

func TestFitCallbackOrder(t *testing.T) {
	rec := &recorder{}
	_, err := linearNet(1).Fit(toySamples(), TrainConfig{Epochs: 2, LearningRate: 0.1, Callbacks: []Callback{rec}})
	require.NoError(t, err)

	assert.Equal(t, []string{"begin", "epoch 1", "done 1", "epoch 2", "done 2", "end"}, rec.events)
}

func TestFitUsesScheduler(t *testing.T) {
	hist, err := linearNet(1).Fit(toySamples(), TrainConfig{
		Epochs:    4,
		Scheduler: opt.NewStepLR(0.2, 2, 0.5),
	})
	require.NoError(t, err)

	lrs := make([]float32, len(hist))
	for i, h := range hist {
		lrs[i] = h.LearningRate
	}
	assert.InDeltaSlice(t, []float32{0.2, 0.2, 0.1, 0.1}, lrs, 1e-7)
}

func TestFitStatsSingleSample(t *testing.T) {
	hist, err := linearNet(1).Fit(toySamples()[:1], TrainConfig{Epochs: 1, LearningRate: 0.1})
	require.NoError(t, err)
	assert.Zero(t, hist[0].LossStdDev)
	assert.Equal(t, 1, hist[0].Samples)
}

func TestFitAppliesAugmentation(t *testing.T) {
	calls := 0
	augment := func(img *tensor.Tensor3, _ *rand.Rand) *tensor.Tensor3 {
		calls++
		return img.Clone()
	}
	_, err := linearNet(1).Fit(toySamples(), TrainConfig{Epochs: 3, LearningRate: 0.1, Augment: augment})
	require.NoError(t, err)
	assert.Equal(t, 9, calls)
}

func TestEarlyStopping(t *testing.T) {
	stop := NewEarlyStopping(1, 1e9)
	hist, err := linearNet(1).Fit(toySamples(), TrainConfig{
		Epochs:       10,
		LearningRate: 0.1,
		Callbacks:    []Callback{stop},
	})
	require.NoError(t, err)

	// The first epoch sets the baseline, the second cannot beat it by 1e9.
	assert.Len(t, hist, 2)
	assert.True(t, stop.Stopped)
}

func TestModelCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.bin")
	ckpt := NewModelCheckpoint(path)

	n := linearNet(1)
	_, err := n.Fit(toySamples(), TrainConfig{Epochs: 3, LearningRate: 0.1, Callbacks: []Callback{ckpt}})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, ckpt.Saved, 1)
	restored := linearNet(2)
	require.NoError(t, restored.LoadWeights(path))
	assert.Equal(t, n.Len(), restored.Len())
}

func TestCSVLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	_, err := linearNet(1).Fit(toySamples(), TrainConfig{
		Epochs:       3,
		LearningRate: 0.1,
		Callbacks:    []Callback{NewCSVLogger(path, false)},
	})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"epoch", "loss", "loss_stddev", "learning_rate", "time_seconds"}, rows[0])
	assert.Equal(t, "3", rows[3][0])
	assert.Equal(t, "0.1", rows[3][3])
}

func TestCSVLoggerAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	for i := 0; i < 2; i++ {
		_, err := linearNet(1).Fit(toySamples(), TrainConfig{
			Epochs:       1,
			LearningRate: 0.1,
			Callbacks:    []Callback{NewCSVLogger(path, true)},
		})
		require.NoError(t, err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3, "one header and one row per run")
}

func TestLoggerCallback(t *testing.T) {
	var logs bytes.Buffer
	n := linearNet(1)
	n.SetLogger(log.New(&logs, "", 0))

	_, err := n.Fit(toySamples(), TrainConfig{Epochs: 4, LearningRate: 0.1, Callbacks: []Callback{Logger{Interval: 2}}})
	require.NoError(t, err)

	assert.NotContains(t, logs.String(), "epoch 1:")
	assert.Contains(t, logs.String(), "epoch 2:")
	assert.Contains(t, logs.String(), "epoch 4:")
}

func TestEvaluateEmpty(t *testing.T) {
	acc, loss := linearNet(1).Evaluate(nil)
	assert.Zero(t, acc)
	assert.Zero(t, loss)
}
