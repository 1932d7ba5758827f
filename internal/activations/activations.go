// Package activations provides the scalar activation functions used by the layers.
package activations

import (
	"fmt"
	"math"
)

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float32) float32

	// Derivative computes f'(x) from the pre-activation value x
	Derivative(x float32) float32

	// Kind identifies the function for serialization and init selection.
	Kind() Kind
}

// Kind enumerates the supported activations.
type Kind int32

const (
	KindReLU Kind = iota
	KindSigmoid
	KindIdentity
)

func (k Kind) String() string {
	switch k {
	case KindReLU:
		return "ReLU"
	case KindSigmoid:
		return "Sigmoid"
	case KindIdentity:
		return "Identity"
	default:
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
}

// ForKind returns the activation for k.
func ForKind(k Kind) (Activation, error) {
	switch k {
	case KindReLU:
		return ReLU{}, nil
	case KindSigmoid:
		return Sigmoid{}, nil
	case KindIdentity:
		return Identity{}, nil
	default:
		return nil, fmt.Errorf("unknown activation %v", k)
	}
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (ReLU) Activate(x float32) float32 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (ReLU) Derivative(x float32) float32 {
	if x > 0 {
		return 1
	}
	return 0
}

func (ReLU) Kind() Kind { return KindReLU }

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// Activate computes sigmoid(x)
func (Sigmoid) Activate(x float32) float32 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (Sigmoid) Derivative(x float32) float32 {
	s := sigmoid(x)
	return s * (1 - s)
}

func (Sigmoid) Kind() Kind { return KindSigmoid }

// Identity passes values through unchanged.
type Identity struct{}

func (Identity) Activate(x float32) float32 { return x }

func (Identity) Derivative(float32) float32 { return 1 }

func (Identity) Kind() Kind { return KindIdentity }

// IsIdentity reports whether act leaves values unchanged.
func IsIdentity(act Activation) bool {
	return act == nil || act.Kind() == KindIdentity
}
