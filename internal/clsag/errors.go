package clsag

import "errors"

// ErrInvalidSignature covers every verification failure: malformed ring
// lengths, point decompression failures, scalars out of range, or a ring
// that simply does not close. clsag never panics on bad input; all such
// conditions surface through this sentinel.
var ErrInvalidSignature = errors.New("clsag: invalid signature")
