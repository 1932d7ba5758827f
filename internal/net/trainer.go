package net

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/FlavioCFOliveira/convnet/internal/opt"
	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// Sample is one labelled input. Label is a one-hot vector with one entry per class.
type Sample struct {
	Input *tensor.Tensor3
	Label *tensor.Tensor3
}

// AugmentFunc returns a perturbed copy of an input image.
type AugmentFunc func(img *tensor.Tensor3, rng *rand.Rand) *tensor.Tensor3

// TrainConfig controls Fit.
type TrainConfig struct {
	Epochs int
	// Scheduler supplies the per-epoch learning rate. Nil means a constant LearningRate.
	Scheduler    opt.Scheduler
	LearningRate float32
	// Shuffle visits samples in a new seeded order every epoch.
	Shuffle bool
	Seed    int64
	// Augment, when set, is applied to every input before it is trained on.
	Augment   AugmentFunc
	Callbacks []Callback
}

// EpochStats summarizes one epoch of training.
type EpochStats struct {
	Epoch        int
	Loss         float64 // mean sample loss
	LossStdDev   float64
	LearningRate float32
	Samples      int
	Duration     time.Duration
}

// History holds the stats of every completed epoch.
type History []EpochStats

var (
	ErrNoSamples = errors.New("no samples")
	ErrNoEpochs  = errors.New("epoch count must be positive")
)

// Fit trains the network sample by sample: each sample runs forward,
// backwards and update before the next one starts.
func (n *Network) Fit(samples []Sample, cfg TrainConfig) (History, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("fit: %w", ErrNoSamples)
	}
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("fit: %w", ErrNoEpochs)
	}
	sched := cfg.Scheduler
	if sched == nil {
		sched = opt.NewConstant(cfg.LearningRate)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	for _, cb := range cfg.Callbacks {
		cb.OnTrainBegin(n)
	}

	history := make(History, 0, cfg.Epochs)
	order := make([]int, len(samples))
	losses := make([]float64, len(samples))

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		for _, cb := range cfg.Callbacks {
			cb.OnEpochBegin(epoch, n)
		}

		start := time.Now()
		lr := sched.LR()
		for i := range order {
			order[i] = i
		}
		if cfg.Shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		for i, idx := range order {
			s := samples[idx]
			input := s.Input
			if cfg.Augment != nil {
				input = cfg.Augment(input, rng)
			}
			losses[i] = float64(n.TrainStep(input, s.Label, lr))
		}

		mean, std := stat.MeanStdDev(losses, nil)
		if len(losses) < 2 {
			std = 0
		}
		stats := EpochStats{
			Epoch:        epoch,
			Loss:         mean,
			LossStdDev:   std,
			LearningRate: lr,
			Samples:      len(samples),
			Duration:     time.Since(start),
		}
		history = append(history, stats)

		sched.Step()
		sched.StepWithLoss(float32(mean))

		stop := false
		for _, cb := range cfg.Callbacks {
			cb.OnEpochEnd(stats, n)
			if s, ok := cb.(Stopper); ok && s.ShouldStop() {
				stop = true
			}
		}
		if stop {
			break
		}
	}

	for _, cb := range cfg.Callbacks {
		cb.OnTrainEnd(n)
	}
	return history, nil
}

// Evaluate returns the fraction of samples whose most probable class matches
// the label, and the mean sample loss. Weights are not changed.
func (n *Network) Evaluate(samples []Sample) (accuracy, meanLoss float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	losses := make([]float64, len(samples))
	correct := 0
	for i, s := range samples {
		result := n.Forward(s.Input)
		losses[i] = float64(n.Loss(result, s.Label))
		if result.Argmax() == s.Label.Argmax() {
			correct++
		}
	}
	return float64(correct) / float64(len(samples)), stat.Mean(losses, nil)
}
