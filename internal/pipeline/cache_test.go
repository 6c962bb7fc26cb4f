package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"basalt/internal/target"
)

func testSummary() *Summary {
	return &Summary{
		Schema:   summaryCacheSchema,
		Package:  "geometry",
		Target:   "native64",
		WordSize: 8,
		Decls: []DeclSummary{
			{Name: "Point", Kind: "struct", Symbol: "basalt.meta.Point", AddressPoint: 1, Words: 4},
			{Name: "Pair", Kind: "struct", Symbol: "basalt.pattern.Pair", Generic: true, AddressPoint: 1, Words: 14},
			{Name: "Broken", Kind: "struct", Failure: "unsupported type shape"},
		},
	}
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	cache := SummaryCacheAt(t.TempDir())
	key := Digest{1, 2, 3}

	want := testSummary()
	if err := cache.Put(key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got Summary
	ok, err := cache.Get(key, &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected a hit")
	}
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Fatalf("summary round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryCacheMissOnAbsentKey(t *testing.T) {
	cache := SummaryCacheAt(t.TempDir())
	var got Summary
	ok, err := cache.Get(Digest{9}, &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("absent key must miss")
	}
}

func TestSummaryCacheRejectsStaleSchema(t *testing.T) {
	cache := SummaryCacheAt(t.TempDir())
	key := Digest{4}

	stale := testSummary()
	stale.Schema = summaryCacheSchema + 1
	if err := cache.Put(key, stale); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got Summary
	ok, err := cache.Get(key, &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("stale schema must read as a miss")
	}
}

func TestSummaryCachePutReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	cache := SummaryCacheAt(dir)
	key := Digest{7}

	first := testSummary()
	if err := cache.Put(key, first); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	second := testSummary()
	second.Package = "updated"
	if err := cache.Put(key, second); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	var got Summary
	if ok, err := cache.Get(key, &got); err != nil || !ok {
		t.Fatalf("Get after replace: ok=%v err=%v", ok, err)
	}
	if got.Package != "updated" {
		t.Fatalf("expected the replacement, got %q", got.Package)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "summaries"))
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one cache file, found %d", len(entries))
	}
}

func TestManifestDigestTracksContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, target.ManifestName)
	if err := os.WriteFile(path, []byte("[package]\nname = \"a\"\n"), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m := &target.Manifest{Path: path, Root: dir}

	d1, err := ManifestDigest(m)
	if err != nil {
		t.Fatalf("ManifestDigest: %v", err)
	}
	d2, err := ManifestDigest(m)
	if err != nil {
		t.Fatalf("ManifestDigest: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digest must be stable for unchanged content")
	}

	if err := os.WriteFile(path, []byte("[package]\nname = \"b\"\n"), 0644); err != nil {
		t.Fatalf("rewrite manifest: %v", err)
	}
	d3, err := ManifestDigest(m)
	if err != nil {
		t.Fatalf("ManifestDigest: %v", err)
	}
	if d1 == d3 {
		t.Fatalf("digest must track content changes")
	}
}

func TestNilCacheIsInert(t *testing.T) {
	var c *SummaryCache
	if err := c.Put(Digest{1}, testSummary()); err != nil {
		t.Fatalf("nil Put: %v", err)
	}
	var got Summary
	if ok, err := c.Get(Digest{1}, &got); ok || err != nil {
		t.Fatalf("nil Get: ok=%v err=%v", ok, err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("nil DropAll: %v", err)
	}
	if s, ok, err := CachedSummary(nil, &target.Manifest{}); s != nil || ok || err != nil {
		t.Fatalf("nil CachedSummary: %v %v %v", s, ok, err)
	}
}
