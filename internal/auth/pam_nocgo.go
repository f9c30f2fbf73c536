//go:build !cgo

package auth

import (
	"context"
	"fmt"
)

// PAM needs cgo; without it every attempt fails to initialise.
type PAM struct{}

func (PAM) Verify(context.Context, string, string, string) (bool, error) {
	return false, fmt.Errorf("%w: built without cgo, libpam unavailable", ErrInit)
}
