package cache

import (
	"testing"
	"time"

	"github.com/use-agent/pricescope/models"
)

func TestKey_NormalizesQuery(t *testing.T) {
	a := Key("iPhone 15", nil)
	b := Key("  iphone 15  ", nil)
	if a != b {
		t.Error("case and surrounding whitespace should not change the key")
	}
}

func TestKey_SourcesChangeKey(t *testing.T) {
	all := Key("iphone 15", nil)
	subset := Key("iphone 15", []models.SourceID{"amazon"})
	other := Key("iphone 15", []models.SourceID{"flipkart"})
	if all == subset || subset == other {
		t.Error("source selection should change the key")
	}
}

func TestGet_HitWithinMaxAge(t *testing.T) {
	c := New(16, time.Minute)
	key := Key("iphone 15", nil)
	c.Set(key, &models.RankedResult{Query: "iphone 15"})

	got, ok := c.Get(key, 60_000)
	if !ok {
		t.Fatal("expected a hit")
	}
	if got.Query != "iphone 15" {
		t.Errorf("query = %q", got.Query)
	}
}

func TestGet_ZeroMaxAgeDisablesLookup(t *testing.T) {
	c := New(16, time.Minute)
	key := Key("iphone 15", nil)
	c.Set(key, &models.RankedResult{Query: "iphone 15"})

	if _, ok := c.Get(key, 0); ok {
		t.Error("maxAge 0 should bypass the cache")
	}
}

func TestGet_StaleEntryMisses(t *testing.T) {
	c := New(16, time.Minute)
	key := Key("iphone 15", nil)
	c.Set(key, &models.RankedResult{Query: "iphone 15"})

	time.Sleep(15 * time.Millisecond)
	if _, ok := c.Get(key, 5); ok {
		t.Error("entry older than maxAge should miss")
	}
}

func TestGet_UnknownKeyMisses(t *testing.T) {
	c := New(16, time.Minute)
	if _, ok := c.Get(Key("nothing here", nil), 60_000); ok {
		t.Error("unknown key should miss")
	}
}

func TestCache_EvictsOldestBeyondCapacity(t *testing.T) {
	c := New(2, time.Minute)
	k1 := Key("one", nil)
	k2 := Key("two", nil)
	k3 := Key("three", nil)

	c.Set(k1, &models.RankedResult{Query: "one"})
	c.Set(k2, &models.RankedResult{Query: "two"})
	c.Set(k3, &models.RankedResult{Query: "three"})

	if _, ok := c.Get(k1, 60_000); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get(k3, 60_000); !ok {
		t.Error("newest entry missing")
	}
}
