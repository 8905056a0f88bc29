package translation

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	source, target, text string
}

// CachedTranslator memoizes successful translations in an LRU cache.
type CachedTranslator struct {
	inner Translator
	cache *lru.Cache[cacheKey, Translation]
}

// Cached wraps t with an LRU of the given size. A size <= 0 returns t as is.
func Cached(t Translator, size int) (Translator, error) {
	if size <= 0 {
		return t, nil
	}
	c, err := lru.New[cacheKey, Translation](size)
	if err != nil {
		return nil, err
	}
	return &CachedTranslator{inner: t, cache: c}, nil
}

func (c *CachedTranslator) Translate(ctx context.Context, text, source, target string) (Translation, error) {
	key := cacheKey{source: source, target: target, text: text}
	if tr, ok := c.cache.Get(key); ok {
		return tr, nil
	}
	tr, err := c.inner.Translate(ctx, text, source, target)
	if err != nil {
		return tr, err
	}
	c.cache.Add(key, tr)
	return tr, nil
}

// Len reports the number of cached entries.
func (c *CachedTranslator) Len() int { return c.cache.Len() }
