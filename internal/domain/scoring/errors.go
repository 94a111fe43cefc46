package scoring

import "errors"

// ErrUnknownCombiner is returned by ParseCombiner for unsupported names.
var ErrUnknownCombiner = errors.New("unknown judge combiner")
