package clmm

import (
	"errors"

	"clmm/internal/tickmath"
)

var (
	ErrArithmeticOverflow             = tickmath.ErrArithmeticOverflow
	ErrInsufficientAmount             = tickmath.ErrInsufficientAmount
	ErrInvalidRange                   = tickmath.ErrInvalidRange
	ErrInvalidTickRange               = errors.New("invalid tick range")
	ErrMintRangeMustCoverCurrentPrice = errors.New("mint range must cover current price")
	ErrUnauthorized                   = errors.New("unauthorized")
	ErrInvalidPositionRange           = errors.New("invalid position range")
	ErrInvalidMint                    = errors.New("invalid mint")
	ErrNoLiquidityToRemove            = errors.New("no liquidity to remove")
	ErrSlippageExceeded               = errors.New("slippage exceeded")
	ErrPoolNotFound                   = errors.New("pool not found")
	ErrPoolExists                     = errors.New("pool already exists")
	ErrPositionNotFound               = errors.New("position not found")
	ErrTickArrayMismatch              = errors.New("tick array does not cover tick")
)
