package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is returned from CheckPow2 and related methods when the value under
// test is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")
