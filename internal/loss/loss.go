// Package loss provides the output-side math of the network: a numerically
// stable softmax and squared-error losses over probability vectors.
package loss

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/convnet/internal/tensor"
)

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue []float32) float32

	// Backward computes the gradient of the loss w.r.t. prediction.
	Backward(yPred, yTrue []float32) []float32
}

func mustSameLen(op string, a, b []float32) {
	if len(a) != len(b) {
		panic(fmt.Errorf("%w: %s: prediction has %d values, target %d",
			tensor.ErrShapeMismatch, op, len(a), len(b)))
	}
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes mean squared error: (1/n) * sum((y_pred - y_true)^2)
func (MSE) Forward(yPred, yTrue []float32) float32 {
	mustSameLen("MSE", yPred, yTrue)
	if len(yPred) == 0 {
		return 0
	}
	var sum float64
	for i := range yPred {
		d := float64(yPred[i] - yTrue[i])
		sum += d * d
	}
	return float32(sum / float64(len(yPred)))
}

// Backward computes gradient: dL/dy_pred = (2/n) * (y_pred - y_true)
func (MSE) Backward(yPred, yTrue []float32) []float32 {
	mustSameLen("MSE", yPred, yTrue)
	grad := make([]float32, len(yPred))
	factor := 2 / float32(len(yPred))
	for i := range yPred {
		grad[i] = factor * (yPred[i] - yTrue[i])
	}
	return grad
}

// SoftmaxMSE is the squared error Σ(s_i - y_i)² measured on softmax
// probabilities s. Backward takes the probabilities (not the logits) and
// returns the gradient with respect to the logits, pushing 2(s - y) through
// the softmax Jacobian in closed form:
//
//	grad_i = s_i * (2(s_i - y_i) - Σ_j 2(s_j - y_j) s_j)
type SoftmaxMSE struct{}

// Forward returns Σ(s_i - y_i)².
func (SoftmaxMSE) Forward(probs, yTrue []float32) float32 {
	mustSameLen("SoftmaxMSE", probs, yTrue)
	var sum float64
	for i := range probs {
		d := float64(probs[i] - yTrue[i])
		sum += d * d
	}
	return float32(sum)
}

// Backward returns dL/d(logits).
func (SoftmaxMSE) Backward(probs, yTrue []float32) []float32 {
	mustSameLen("SoftmaxMSE", probs, yTrue)
	var dot float64
	for j := range probs {
		dot += 2 * float64(probs[j]-yTrue[j]) * float64(probs[j])
	}
	grad := make([]float32, len(probs))
	for i, s := range probs {
		grad[i] = float32(float64(s) * (2*float64(s-yTrue[i]) - dot))
	}
	return grad
}

// Softmax returns exp(x_i - max) / Σ exp(x_j - max). Subtracting the maximum
// keeps every exponent ≤ 0, so large logits cannot overflow.
func Softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	exps := make([]float64, len(logits))
	for i, v := range logits {
		exps[i] = math.Exp(float64(v - maxVal))
		sum += exps[i]
	}
	for i, e := range exps {
		out[i] = float32(e / sum)
	}
	return out
}

// SoftmaxTensor applies Softmax over all elements of t in flat order and
// keeps the shape.
func SoftmaxTensor(t *tensor.Tensor3) *tensor.Tensor3 {
	w, h, c := t.Shape()
	return tensor.FromSlice3(w, h, c, Softmax(t.Data()))
}
