package query

import (
	"net/url"
	"strings"
)

// Key identifies a cached read. Kind names the resource ("products",
// "category"); Params is the canonical parameter string.
type Key struct {
	Kind   string
	Params string
}

// NewKey builds a key whose params are the given parts joined with "/".
func NewKey(kind string, parts ...string) Key {
	return Key{Kind: kind, Params: strings.Join(parts, "/")}
}

// ValuesKey builds a key from URL query values. url.Values.Encode sorts by
// name, so equal filters always produce equal keys.
func ValuesKey(kind string, v url.Values) Key {
	return Key{Kind: kind, Params: v.Encode()}
}

// KindKey is the prefix matching every key of kind.
func KindKey(kind string) Key {
	return Key{Kind: kind}
}

// HasPrefix reports whether k falls under prefix: same kind, and prefix
// params empty or a leading run of whole parts of k's params. Parts are
// separated by "/" or "&", so "1" covers "1/reviews" but not "12".
func (k Key) HasPrefix(prefix Key) bool {
	if k.Kind != prefix.Kind {
		return false
	}
	if prefix.Params == "" || k.Params == prefix.Params {
		return true
	}
	if !strings.HasPrefix(k.Params, prefix.Params) {
		return false
	}
	switch k.Params[len(prefix.Params)] {
	case '/', '&':
		return true
	}
	return false
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Kind
	}
	return k.Kind + ":" + k.Params
}
