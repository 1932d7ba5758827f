package tensor

import (
	"errors"
	"fmt"
)

// Programming errors. Operations that detect them panic with an error
// wrapping one of these values; recover and use errors.Is to classify.
var (
	ErrShapeMismatch  = errors.New("shape mismatch")
	ErrOutOfBounds    = errors.New("index out of bounds")
	ErrDivisionByZero = errors.New("division by zero")
)

func panicShape(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrShapeMismatch, fmt.Sprintf(format, args...)))
}

func panicBounds(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrOutOfBounds, fmt.Sprintf(format, args...)))
}

func panicDivZero(op string) {
	panic(fmt.Errorf("%w: %s", ErrDivisionByZero, op))
}
