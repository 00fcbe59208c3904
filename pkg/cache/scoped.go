package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one backend without seeing each other's entries.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "sldview:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// StyleKey generates a prefixed key for a style compiled from a source.
func (k *ScopedKeyer) StyleKey(source string, opts StyleKeyOpts) string {
	return k.prefix + k.inner.StyleKey(source, opts)
}

// DocumentKey generates a prefixed key for a style compiled from content.
func (k *ScopedKeyer) DocumentKey(data []byte, opts StyleKeyOpts) string {
	return k.prefix + k.inner.DocumentKey(data, opts)
}
