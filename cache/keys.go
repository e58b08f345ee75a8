package cache

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	// DefaultPrefix is the application prefix for every cache key.
	DefaultPrefix = "goodleaf:cache"

	// GlobalNamespace replaces an empty namespace.
	GlobalNamespace = "global"

	keySeparator = ":"
)

// KeyRegistry builds namespaced cache keys under a fixed prefix.
//
// Keys have the form <prefix>:<namespace>:<part1>:<part2>... and are
// case-sensitive. A zero KeyRegistry uses DefaultPrefix.
type KeyRegistry struct {
	prefix string
}

// NewKeyRegistry returns a registry using prefix, or DefaultPrefix when
// prefix is blank.
func NewKeyRegistry(prefix string) KeyRegistry {
	return KeyRegistry{prefix: strings.TrimSpace(prefix)}
}

// Prefix returns the application prefix.
func (r KeyRegistry) Prefix() string {
	if r.prefix == "" {
		return DefaultPrefix
	}
	return r.prefix
}

// Build returns the key for namespace and parts. Nil parts and parts that
// stringify to blank are dropped; order is preserved.
func (r KeyRegistry) Build(namespace string, parts ...any) string {
	segments := []string{r.Prefix(), normalizeNamespace(namespace)}
	segments = appendParts(segments, parts)
	return strings.Join(segments, keySeparator)
}

// Namespace returns the prefix shared by every key of namespace, including
// the trailing separator.
func (r KeyRegistry) Namespace(namespace string) string {
	return r.Prefix() + keySeparator + normalizeNamespace(namespace) + keySeparator
}

// NamespaceOf extracts the namespace from a key built by r, or "" when the
// key does not carry r's prefix.
func (r KeyRegistry) NamespaceOf(key string) string {
	rest, ok := strings.CutPrefix(key, r.Prefix()+keySeparator)
	if !ok {
		return ""
	}
	ns, _, _ := strings.Cut(rest, keySeparator)
	return ns
}

// BuildKey builds a key with DefaultPrefix.
//
//	BuildKey("loans", "detail", "GL-2025-001") // goodleaf:cache:loans:detail:GL-2025-001
func BuildKey(namespace string, parts ...any) string {
	return KeyRegistry{}.Build(namespace, parts...)
}

func normalizeNamespace(namespace string) string {
	if ns := strings.TrimSpace(namespace); ns != "" {
		return ns
	}
	return GlobalNamespace
}

func appendParts(segments []string, parts []any) []string {
	for _, p := range parts {
		switch v := p.(type) {
		case []string:
			for _, s := range v {
				segments = appendPart(segments, s)
			}
		case []any:
			segments = appendParts(segments, v)
		default:
			if s, ok := partString(v); ok {
				segments = appendPart(segments, s)
			}
		}
	}
	return segments
}

func appendPart(segments []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		segments = append(segments, s)
	}
	return segments
}

func partString(p any) (string, bool) {
	if p == nil {
		return "", false
	}
	rv := reflect.ValueOf(p)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return "", false
		}
	}
	switch v := p.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}
