// Package opt provides learning-rate schedules for plain SGD training.
package opt

import "math"

// Scheduler supplies the learning rate for the current epoch.
// The trainer reads LR before an epoch and calls Step and StepWithLoss after it.
type Scheduler interface {
	LR() float32
	Step()
	StepWithLoss(loss float32)
}

// BaseScheduler provides no-op Step methods.
type BaseScheduler struct{}

func (BaseScheduler) Step()                {}
func (BaseScheduler) StepWithLoss(float32) {}

// Constant keeps the learning rate fixed.
type Constant struct {
	BaseScheduler
	Rate float32
}

// NewConstant returns a fixed-rate scheduler.
func NewConstant(lr float32) *Constant {
	return &Constant{Rate: lr}
}

func (s *Constant) LR() float32 { return s.Rate }

// StepLR multiplies the learning rate by gamma every stepSize epochs.
type StepLR struct {
	BaseScheduler
	stepSize  int
	gamma     float32
	lastEpoch int
	lr        float32
}

func NewStepLR(initialLR float32, stepSize int, gamma float32) *StepLR {
	if stepSize < 1 {
		stepSize = 1
	}
	return &StepLR{
		stepSize: stepSize,
		gamma:    gamma,
		lr:       initialLR,
	}
}

func (s *StepLR) Step() {
	s.lastEpoch++
	if s.lastEpoch%s.stepSize == 0 {
		s.lr *= s.gamma
	}
}

func (s *StepLR) LR() float32 { return s.lr }

// ExponentialLR multiplies the learning rate by gamma every epoch.
type ExponentialLR struct {
	BaseScheduler
	gamma float32
	lr    float32
}

func NewExponentialLR(initialLR, gamma float32) *ExponentialLR {
	return &ExponentialLR{
		gamma: gamma,
		lr:    initialLR,
	}
}

func (s *ExponentialLR) Step() {
	s.lr *= s.gamma
}

func (s *ExponentialLR) LR() float32 { return s.lr }

// ReduceLROnPlateau reduces learning rate when the loss has stopped improving.
type ReduceLROnPlateau struct {
	BaseScheduler
	factor    float32
	patience  int
	threshold float32
	cooldown  int
	minLR     float32
	lr        float32

	bestLoss        float32
	numBadEpochs    int
	cooldownCounter int
}

func NewReduceLROnPlateau(initialLR, factor float32, patience int, threshold, minLR float32) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		factor:    factor,
		patience:  patience,
		threshold: threshold,
		minLR:     minLR,
		lr:        initialLR,
		bestLoss:  math.MaxFloat32,
	}
}

// WithCooldown sets the number of epochs to wait after a reduction.
func (s *ReduceLROnPlateau) WithCooldown(epochs int) *ReduceLROnPlateau {
	s.cooldown = epochs
	return s
}

func (s *ReduceLROnPlateau) StepWithLoss(currentLoss float32) {
	if s.cooldownCounter > 0 {
		s.cooldownCounter--
		return
	}

	if currentLoss < s.bestLoss-s.threshold {
		s.bestLoss = currentLoss
		s.numBadEpochs = 0
	} else {
		s.numBadEpochs++
	}

	if s.numBadEpochs >= s.patience {
		s.lr = max(s.lr*s.factor, s.minLR)
		s.numBadEpochs = 0
		s.cooldownCounter = s.cooldown
	}
}

func (s *ReduceLROnPlateau) LR() float32 { return s.lr }
