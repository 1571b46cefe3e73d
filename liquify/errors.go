package liquify

import "errors"

var (
	// ErrPoolExists rejects a second initialization of the same ordered pair.
	ErrPoolExists = errors.New("pool already exists for this token pair")
	// ErrArithmetic aborts a call whose pricing computation overflowed or
	// divided by zero.
	ErrArithmetic = errors.New("arithmetic fault in pricing computation")
	// ErrSlippageExceeded aborts a swap whose output is below the caller's
	// minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded: the output amount is below your minimum")
)
