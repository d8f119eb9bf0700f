package compact

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/code-digest/internal/digest"
)

// DefaultCacheSize bounds the fragment cache by total cached characters.
const DefaultCacheSize = 8 << 20

// fragmentCache remembers formatted fragment bodies across runs, keyed by
// path, tier, style and a hash of the content, so unchanged files are not
// re-extracted.
type fragmentCache struct {
	cache otter.Cache[string, string]
}

func newFragmentCache(capacity int) (*fragmentCache, error) {
	cache, err := otter.MustBuilder[string, string](capacity).
		Cost(func(key string, value string) uint32 {
			return uint32(len(key) + len(value))
		}).
		Build()
	if err != nil {
		return nil, err
	}
	return &fragmentCache{cache: cache}, nil
}

func cacheKey(path string, tier digest.Tier, style digest.Style, content string) string {
	sum := sha256.Sum256([]byte(content))
	return path + "\x00" + strconv.Itoa(int(tier)) + "\x00" + string(style) + "\x00" + hex.EncodeToString(sum[:])
}

func (c *fragmentCache) get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.cache.Get(key)
}

func (c *fragmentCache) set(key, body string) {
	if c == nil {
		return
	}
	c.cache.Set(key, body)
}

func (c *fragmentCache) close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
