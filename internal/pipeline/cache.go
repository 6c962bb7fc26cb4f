package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"basalt/internal/target"
)

// Schema version of the cached payload - increment when Summary changes
// shape.
const summaryCacheSchema uint16 = 1

// Digest is a SHA-256 content key.
type Digest [32]byte

// ManifestDigest keys the summary cache. The manifest's bytes fix the
// package, the target, and the declaration set, so equal digests mean an
// equal run.
func ManifestDigest(m *target.Manifest) (Digest, error) {
	body, err := os.ReadFile(m.Path)
	if err != nil {
		return Digest{}, err
	}
	return sha256.Sum256(body), nil
}

// Summary is the durable record of one emission run.
type Summary struct {
	Schema   uint16
	Package  string
	Target   string
	WordSize int
	Interop  bool
	Decls    []DeclSummary
}

// DeclSummary describes one declaration's emission outcome.
type DeclSummary struct {
	Name         string
	Kind         string
	Symbol       string
	Accessor     string
	Generic      bool
	Foreign      bool
	AddressPoint int
	Words        int

	// Failure carries the unsupported-shape message, empty on success.
	Failure string
}

// Bytes is the payload size in bytes for the run's word size.
func (d DeclSummary) Bytes(wordSize int) int { return d.Words * wordSize }

// SummaryCache stores run summaries on disk keyed by manifest digest.
// Thread-safe for concurrent access.
type SummaryCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenSummaryCache initializes and returns a cache at the standard user
// location.
func OpenSummaryCache(app string) (*SummaryCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &SummaryCache{dir: dir}, nil
}

// SummaryCacheAt opens a cache rooted at an explicit directory.
func SummaryCacheAt(dir string) *SummaryCache {
	return &SummaryCache{dir: dir}
}

func (c *SummaryCache) pathFor(key Digest) string {
	// A "summaries" subdirectory keeps the cache root listable.
	return filepath.Join(c.dir, "summaries", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and writes a summary, replacing any previous entry
// atomically.
func (c *SummaryCache) Put(key Digest, s *Summary) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(s); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads the summary for a key. A missing entry or one written by a
// different schema version is a miss, not an error.
func (c *SummaryCache) Get(key Digest, out *Summary) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != summaryCacheSchema {
		return false, nil
	}
	return true, nil
}

// CachedSummary is the manifest-keyed fast path: it reports the summary of
// a previous identical run, if one is cached.
func CachedSummary(c *SummaryCache, m *target.Manifest) (*Summary, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	key, err := ManifestDigest(m)
	if err != nil {
		return nil, false, err
	}
	var s Summary
	ok, err := c.Get(key, &s)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &s, true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *SummaryCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}
