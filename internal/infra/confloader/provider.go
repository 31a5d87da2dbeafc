package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var ErrReadBytesNotSupported = errors.New("confloader: map provider has no byte form")

// mapProvider feeds a Go map into koanf. Dotted keys are expanded into
// nested maps so that {"log.level": "debug"} merges like file input.
type mapProvider map[string]any

// ReadBytes is not supported; koanf uses Read for this provider.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read returns the configuration map.
func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}
