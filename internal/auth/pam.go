//go:build cgo

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/msteinert/pam"
)

// PAM verifies passwords through libpam.
type PAM struct{}

// Verify runs a PAM authenticate plus account check for username. A
// rejected password is reported as (false, nil).
func (PAM) Verify(_ context.Context, service, username, password string) (bool, error) {
	tx, err := pam.StartFunc(service, username, func(style pam.Style, msg string) (string, error) {
		switch style {
		case pam.PromptEchoOff, pam.PromptEchoOn:
			return password, nil
		case pam.ErrorMsg, pam.TextInfo:
			return "", nil
		}
		return "", fmt.Errorf("unsupported PAM message style %d", style)
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInit, err)
	}
	if err := tx.Authenticate(0); err != nil {
		return false, nil
	}
	if err := tx.AcctMgmt(0); err != nil {
		return false, errors.Join(errors.New("account not usable"), err)
	}
	return true, nil
}
