package platform

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Platform is a named upload destination whose file size ceiling can be
// used as a compression target
type Platform interface {
	// GetName returns the preset name used on the command line
	GetName() string

	// GetDescription returns a short human readable label
	GetDescription() string

	// GetMaxFileSize returns the largest accepted upload in bytes
	GetMaxFileSize() int64
}

var platforms = make(map[string]Platform)

// Register adds a platform to the registry
func Register(p Platform) {
	platforms[p.GetName()] = p
}

// Get returns a platform by name
func Get(name string) (Platform, error) {
	p, ok := platforms[name]
	if !ok {
		return nil, fmt.Errorf("unsupported preset: %s", name)
	}
	return p, nil
}

// GetSupportedPlatforms returns the registered preset names in sorted order
func GetSupportedPlatforms() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

const mib = 1024 * 1024
