package oauth

import (
	"fmt"
	"strings"
)

// userSessionSeparator is the reserved character permission strings
// may never contain, since it's used elsewhere to join a user
// identity with its session id in a single cache key.
const userSessionSeparator = ''

// ValidatePermission rejects a permission string that contains the
// reserved session separator; configurations that load permissions
// from an external source (config file, database) must run them
// through this before storing them on a User.
func ValidatePermission(permission string) error {
	if strings.ContainsRune(permission, userSessionSeparator) {
		return fmt.Errorf("oauth: permission %q contains the reserved session separator", permission)
	}
	return nil
}

// ValidatePermissions validates every entry in permissions.
func ValidatePermissions(permissions []string) error {
	for _, p := range permissions {
		if err := ValidatePermission(p); err != nil {
			return err
		}
	}
	return nil
}

// HasPermission reports whether want is present among permissions.
func HasPermission(permissions []string, want string) bool {
	for _, p := range permissions {
		if p == want {
			return true
		}
	}
	return false
}
