package adaptor

import "errors"

// ErrInvalidPreSignature covers a presignature that fails its
// self-consistency check or is missing required fields.
var ErrInvalidPreSignature = errors.New("adaptor: invalid presignature")

// ErrRecoveryMismatch covers a completed signature whose r does not match
// the presignature it is supposed to pair with, or whose recovered scalar
// does not correspond to the published statement point.
var ErrRecoveryMismatch = errors.New("adaptor: recovery mismatch")
