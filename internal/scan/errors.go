package scan

import "errors"

var (
	ErrInvalidRange  = errors.New("invalid nonce range")
	ErrInvalidConfig = errors.New("invalid session config")
	ErrInvalidTarget = errors.New("invalid target")
	ErrTimeout       = errors.New("scan timed out")
)
