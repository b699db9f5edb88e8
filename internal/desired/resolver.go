package desired

import (
	"errors"
	"fmt"

	"github.com/freestar-tools/g2persist/internal/gwconfig"
	"github.com/freestar-tools/g2persist/internal/module"
)

// KeyPrefix precedes the module letter in startup link keys.
const KeyPrefix = "LINK_AT_STARTUP_"

// ErrMalformedLink is wrapped by SpecError.
var ErrMalformedLink = errors.New("malformed startup link")

// Link is the persistent link configured for one module.
type Link struct {
	LocalModule  module.ID
	Callsign     string
	RemoteModule string
}

// SpecError reports a LINK_AT_STARTUP value too short to hold a local
// module and a remote module.
type SpecError struct {
	Key   string
	Value string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("%s=%q: %v: need at least a local and a remote module letter", e.Key, e.Value, ErrMalformedLink)
}

func (e *SpecError) Unwrap() error { return ErrMalformedLink }

// Key returns the config key holding the startup link for id.
func Key(id module.ID) string {
	return KeyPrefix + string(id)
}

// ParseSpec splits a startup link value such as "AN0HAPC" into the local
// module (A), the remote callsign (N0HAP) and the remote module (C).
func ParseSpec(key, value string) (Link, error) {
	if len(value) < 2 {
		return Link{}, &SpecError{Key: key, Value: value}
	}
	return Link{
		LocalModule:  module.ID(value[:1]),
		Callsign:     value[1 : len(value)-1],
		RemoteModule: value[len(value)-1:],
	}, nil
}

// Resolve returns the desired link for every module in modules that has a
// non-empty LINK_AT_STARTUP value. Any malformed value fails the whole
// resolution.
func Resolve(cfg gwconfig.Map, modules module.Set) (map[module.ID]Link, error) {
	links := make(map[module.ID]Link)
	for _, id := range modules {
		key := Key(id)
		if _, ok := cfg.Lookup(key); !ok {
			continue
		}
		value, err := cfg.String(key)
		if err != nil {
			return nil, err
		}
		if value == "" {
			continue
		}
		link, err := ParseSpec(key, value)
		if err != nil {
			return nil, err
		}
		links[id] = link
	}
	return links, nil
}
