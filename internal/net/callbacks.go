package net

import (
	"math"
	"time"
)

// Callback observes a Fit run.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(stats EpochStats, n *Network)
}

// Stopper is implemented by callbacks that can end training early.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(*Network)           {}
func (BaseCallback) OnTrainEnd(*Network)             {}
func (BaseCallback) OnEpochBegin(int, *Network)      {}
func (BaseCallback) OnEpochEnd(EpochStats, *Network) {}

// EarlyStopping stops training when the loss has stopped improving.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.Inf(1),
	}
}

func (c *EarlyStopping) OnEpochEnd(stats EpochStats, n *Network) {
	if stats.Loss < c.bestLoss-c.Threshold {
		c.bestLoss = stats.Loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if c.numBadEpochs >= c.Patience {
		n.Logger().Printf("early stopping at epoch %d: loss %.6f did not improve for %d epochs",
			stats.Epoch, stats.Loss, c.Patience)
		c.Stopped = true
	}
}

func (c *EarlyStopping) ShouldStop() bool { return c.Stopped }

// ModelCheckpoint saves the weights after every epoch that improves the loss.
type ModelCheckpoint struct {
	BaseCallback
	Filename string

	bestLoss float64
	Saved    int
}

func NewModelCheckpoint(filename string) *ModelCheckpoint {
	return &ModelCheckpoint{
		Filename: filename,
		bestLoss: math.Inf(1),
	}
}

func (c *ModelCheckpoint) OnEpochEnd(stats EpochStats, n *Network) {
	if stats.Loss >= c.bestLoss {
		return
	}
	c.bestLoss = stats.Loss
	// SaveWeights logs its own failures.
	if err := n.SaveWeights(c.Filename); err == nil {
		c.Saved++
		n.Logger().Printf("checkpoint saved: loss %.6f is new best", stats.Loss)
	}
}

// Logger logs training progress every Interval epochs.
type Logger struct {
	BaseCallback
	Interval int
}

func (c Logger) OnEpochEnd(stats EpochStats, n *Network) {
	if c.Interval > 0 && stats.Epoch%c.Interval == 0 {
		n.Logger().Printf("epoch %d: loss = %.6f ± %.6f, lr = %g, %d samples in %s",
			stats.Epoch, stats.Loss, stats.LossStdDev, stats.LearningRate, stats.Samples, stats.Duration.Round(time.Millisecond))
	}
}
