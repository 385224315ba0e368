package scopecache

import (
	"github.com/unkn0wn-root/scopecache/stablehash"
)

// KeyParts describe a cache key: a resource, an operation on it, and
// optional parameters distinguishing one call from another.
type KeyParts struct {
	Resource  string
	Operation string
	Params    any // nil => no parameter segment
}

// BuildKey derives the unprefixed key for parts:
//
//	resource:operation            (no params)
//	resource:operation:<hash>     (params hashed via stablehash)
//
// Pure and side-effect free. Parameter order inside maps is irrelevant;
// see stablehash.
func BuildKey(p KeyParts) (string, error) {
	key := p.Resource + ":" + p.Operation
	if p.Params == nil {
		return key, nil
	}
	h, err := stablehash.Sum(p.Params)
	if err != nil {
		return "", err
	}
	return key + ":" + h, nil
}

// PrefixKey prepends prefix as "prefix:key". An empty prefix leaves key
// untouched. Every key physically stored by a backend goes through this,
// which is what makes prefix-scoped clearing exact.
func PrefixKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
