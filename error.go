package clob

import "errors"

var (
	ErrInvalidParam = errors.New("the param is invalid")
	ErrNotFound     = errors.New("not found")
	ErrTimeout      = errors.New("timeout")
	ErrShutdown     = errors.New("order book is shutting down")
	ErrSequenceGap  = errors.New("sequence gap detected")
)
