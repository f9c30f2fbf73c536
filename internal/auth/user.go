package auth

import (
	"os"
	"os/user"
)

// DefaultService is the PAM service used when none is configured.
const DefaultService = "system-auth"

// CurrentUsername returns the login name of the process owner.
func CurrentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
