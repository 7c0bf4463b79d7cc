package seed

import "net/http"

type BuiltInSourceType = string

const (
	InlineSourceType   BuiltInSourceType = "inline"
	HostFileSourceType BuiltInSourceType = "hostfile"
	HTTPSourceType     BuiltInSourceType = "http"
)

// RegisterBuiltins registers all built-in sources by default or only the
// specific ones if keys are provided
func RegisterBuiltins(r *Registry, types ...BuiltInSourceType) {
	if len(types) == 0 {
		types = []BuiltInSourceType{InlineSourceType, HostFileSourceType, HTTPSourceType}
	}

	for _, key := range types {
		switch key {
		case InlineSourceType:
			r.Register(InlineSourceType, &InlineProvider{})
		case HostFileSourceType:
			r.Register(HostFileSourceType, &HostFileProvider{})
		case HTTPSourceType:
			RegisterHTTP(r, http.DefaultClient)
		}
	}
}
