package neat

import "errors"

var (
	// ErrConfiguration reports an unknown selector or an out-of-range option.
	// It is returned while building a configuration and is always fatal.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidOperation reports an operation the genome graph forbids:
	// feeding a node that accepts no input, activating a bias node, or
	// referencing a node id that does not exist.
	ErrInvalidOperation = errors.New("invalid operation")
)
