package gitlab

import (
	"fmt"
	"strconv"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"
)

var accessLevels = map[string]gl.AccessLevelValue{
	"no_access":  gl.NoPermissions,
	"minimal":    gl.MinimalAccessPermissions,
	"guest":      gl.GuestPermissions,
	"reporter":   gl.ReporterPermissions,
	"developer":  gl.DeveloperPermissions,
	"devel":      gl.DeveloperPermissions,
	"maintainer": gl.MaintainerPermissions,
	"owner":      gl.OwnerPermissions,
}

// ParseAccessLevel accepts a level name (case-insensitive, e.g. "DEVELOPER")
// or its numeric value.
func ParseAccessLevel(s string) (gl.AccessLevelValue, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if level, ok := accessLevels[name]; ok {
		return level, nil
	}

	if n, err := strconv.Atoi(name); err == nil {
		for _, level := range accessLevels {
			if int(level) == n {
				return level, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidAccessLevel, s)
}

// AccessLevelName returns the canonical name of a level.
func AccessLevelName(level gl.AccessLevelValue) string {
	switch level {
	case gl.NoPermissions:
		return "no_access"
	case gl.MinimalAccessPermissions:
		return "minimal"
	case gl.GuestPermissions:
		return "guest"
	case gl.ReporterPermissions:
		return "reporter"
	case gl.DeveloperPermissions:
		return "developer"
	case gl.MaintainerPermissions:
		return "maintainer"
	case gl.OwnerPermissions:
		return "owner"
	default:
		return strconv.Itoa(int(level))
	}
}
