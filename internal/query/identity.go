package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// paramSeparator joins canonicalized parameter pairs inside an identity.
// A unit separator cannot appear in a SQL parameter value, so the joined
// form is unambiguous.
const paramSeparator = "\x1f"

// Identity uniquely identifies one logical dashboard query: a view name plus
// the canonicalized set of parameters. Two identities are equal iff their
// names and canonicalized parameters match, so Identity values are directly
// comparable and usable as map keys.
type Identity struct {
	name   string
	params string
}

// NewIdentity builds an Identity from a view name and its parameters.
// The name is trimmed and lowercased; parameter keys are sorted and both
// keys and values are trimmed, so parameter order and incidental whitespace
// never produce distinct identities.
func NewIdentity(name string, params map[string]string) Identity {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		key := strings.ToLower(strings.TrimSpace(k))
		val := strings.TrimSpace(params[k])
		pairs = append(pairs, key+"="+val)
	}

	return Identity{
		name:   strings.ToLower(strings.TrimSpace(name)),
		params: strings.Join(pairs, paramSeparator),
	}
}

// Name returns the canonical view name.
func (id Identity) Name() string {
	return id.name
}

// Params returns the canonicalized parameters as a map.
// The returned map is a copy; mutating it does not affect the identity.
func (id Identity) Params() map[string]string {
	out := map[string]string{}
	if id.params == "" {
		return out
	}
	for _, pair := range strings.Split(id.params, paramSeparator) {
		k, v, _ := strings.Cut(pair, "=")
		out[k] = v
	}
	return out
}

// Key returns a deterministic cache key for the identity.
// The key is an xxhash of the canonical form, prefixed with the view name
// for log readability.
func (id Identity) Key() string {
	h := xxhash.New()
	_, _ = h.WriteString(id.name)
	_, _ = h.WriteString(paramSeparator)
	_, _ = h.WriteString(id.params)
	return fmt.Sprintf("%s-%016x", id.name, h.Sum64())
}

// String implements fmt.Stringer for log output.
func (id Identity) String() string {
	if id.params == "" {
		return id.name
	}
	return id.name + "{" + strings.ReplaceAll(id.params, paramSeparator, ",") + "}"
}

// IsZero reports whether the identity is the zero value.
func (id Identity) IsZero() bool {
	return id.name == ""
}
