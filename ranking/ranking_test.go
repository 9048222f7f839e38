package ranking

import (
	"testing"
	"time"

	"github.com/use-agent/pricescope/config"
	"github.com/use-agent/pricescope/models"
)

func testEngine() *Engine {
	return NewEngine(config.RankingConfig{
		ReferenceCurrency: "INR",
		Rates: map[string]string{
			"INR": "1",
			"USD": "83",
			"EUR": "90",
		},
		SourcePriority: []string{"amazon", "flipkart", "croma"},
	})
}

func rawOffer(source models.SourceID, title, price string, fetchedAt time.Time) *models.RawOffer {
	return &models.RawOffer{
		Source:     source,
		Title:      title,
		PriceText:  price,
		URL:        "https://example.in/p/1",
		FetchedVia: models.ViaStatic,
		FetchedAt:  fetchedAt,
	}
}

func TestNormalize(t *testing.T) {
	e := testEngine()
	now := time.Now()

	t.Run("inr passthrough", func(t *testing.T) {
		norm, ok := e.Normalize(rawOffer("amazon", "iPhone 15", "₹79,900", now))
		if !ok {
			t.Fatal("dropped")
		}
		if norm.Price.String() != "79900" {
			t.Errorf("price = %s, want 79900", norm.Price)
		}
		if norm.Currency != "INR" {
			t.Errorf("currency = %s, want INR", norm.Currency)
		}
	})

	t.Run("usd converted", func(t *testing.T) {
		norm, ok := e.Normalize(rawOffer("amazon", "iPhone 15", "$999.00", now))
		if !ok {
			t.Fatal("dropped")
		}
		if norm.Price.String() != "82917" {
			t.Errorf("price = %s, want 82917", norm.Price)
		}
	})

	t.Run("unparseable price dropped", func(t *testing.T) {
		if _, ok := e.Normalize(rawOffer("amazon", "iPhone 15", "price on request", now)); ok {
			t.Error("unparseable price was not dropped")
		}
	})

	t.Run("unknown currency dropped", func(t *testing.T) {
		if _, ok := e.Normalize(rawOffer("amazon", "iPhone 15", "79900", now)); ok {
			t.Error("offer with no detectable currency was not dropped")
		}
	})

	t.Run("unsupported currency dropped", func(t *testing.T) {
		if _, ok := e.Normalize(rawOffer("amazon", "iPhone 15", "£999", now)); ok {
			t.Error("offer in a currency absent from the rate table was not dropped")
		}
	})

	t.Run("rating parsed", func(t *testing.T) {
		raw := rawOffer("amazon", "iPhone 15", "₹79,900", now)
		raw.RatingText = "4.2 out of 5 stars"
		norm, ok := e.Normalize(raw)
		if !ok {
			t.Fatal("dropped")
		}
		if norm.Rating == nil || *norm.Rating != 4.2 {
			t.Errorf("rating = %v, want 4.2", norm.Rating)
		}
	})

	t.Run("out of scale rating absent", func(t *testing.T) {
		raw := rawOffer("amazon", "iPhone 15", "₹79,900", now)
		raw.RatingText = "78 reviews"
		norm, _ := e.Normalize(raw)
		if norm.Rating != nil {
			t.Errorf("rating = %v, want nil", *norm.Rating)
		}
	})
}

func TestSort_TotalOrder(t *testing.T) {
	e := testEngine()
	r45 := 4.5
	r40 := 4.0

	mk := func(source models.SourceID, title, price string, rating *float64) models.NormalizedOffer {
		norm, ok := e.Normalize(rawOffer(source, title, price, time.Now()))
		if !ok {
			t.Fatalf("fixture offer dropped: %s %s", source, price)
		}
		norm.Rating = rating
		return norm
	}

	offers := []models.NormalizedOffer{
		mk("croma", "iPhone 15", "₹79,900", &r40),
		mk("amazon", "iPhone 15", "₹78,499", nil),
		mk("flipkart", "iPhone 15", "₹79,900", &r45),
		mk("amazon", "iPhone 15", "₹79,900", &r45),
		mk("snapdeal", "iPhone 15 refurbished", "₹49,999", nil),
	}

	e.Sort(offers)

	wantSources := []models.SourceID{"snapdeal", "amazon", "amazon", "flipkart", "croma"}
	for i, want := range wantSources {
		if offers[i].Source != want {
			t.Fatalf("position %d: got %s, want %s (order: %v)", i, offers[i].Source, want, sources(offers))
		}
	}

	// Sorting again must not change the order.
	before := sources(offers)
	e.Sort(offers)
	after := sources(offers)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("sort not idempotent: %v then %v", before, after)
		}
	}
}

func sources(offers []models.NormalizedOffer) []models.SourceID {
	out := make([]models.SourceID, len(offers))
	for i, o := range offers {
		out[i] = o.Source
	}
	return out
}

func TestSort_NilRatingOrdersLast(t *testing.T) {
	e := testEngine()
	r10 := 1.0

	a, _ := e.Normalize(rawOffer("amazon", "A", "₹100", time.Now()))
	a.Rating = nil
	b, _ := e.Normalize(rawOffer("flipkart", "B", "₹100", time.Now()))
	b.Rating = &r10

	offers := []models.NormalizedOffer{a, b}
	e.Sort(offers)
	if offers[0].Source != "flipkart" {
		t.Errorf("rated offer should precede unrated at equal price: %v", sources(offers))
	}
}

func TestRank_DedupesBySourceAndTitle(t *testing.T) {
	e := testEngine()
	earlier := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Minute)

	outcome := &models.ScrapeOutcome{
		Query: "iphone 15",
		PerSource: map[models.SourceID]models.SourceResult{
			"amazon": {Offer: rawOffer("amazon", "iPhone 15  128GB", "₹79,900", earlier)},
		},
	}
	result := e.Rank(outcome)
	if len(result.Offers) != 1 {
		t.Fatalf("offers = %d, want 1", len(result.Offers))
	}

	// Same source, title differing only in case and whitespace: one survives.
	dupes := []models.NormalizedOffer{}
	first, _ := e.Normalize(rawOffer("amazon", "iPhone 15  128GB", "₹79,900", earlier))
	second, _ := e.Normalize(rawOffer("amazon", "IPHONE 15 128gb", "₹78,499", later))
	dupes = append(dupes, first, second)

	deduped := dedupe(dupes)
	if len(deduped) != 1 {
		t.Fatalf("deduped = %d, want 1", len(deduped))
	}
	if !deduped[0].FetchedAt.Equal(later) {
		t.Error("dedupe did not keep the most recent offer")
	}
}

func TestRank_ManifestSortedBySource(t *testing.T) {
	e := testEngine()
	outcome := &models.ScrapeOutcome{
		Query: "iphone 15",
		PerSource: map[models.SourceID]models.SourceResult{
			"snapdeal": {Failure: &models.FetchFailure{Source: "snapdeal", Kind: models.FailTimeout}},
			"amazon":   {Failure: &models.FetchFailure{Source: "amazon", Kind: models.FailBotDetected}},
			"croma":    {Failure: &models.FetchFailure{Source: "croma", Kind: models.FailNetwork}},
		},
	}

	result := e.Rank(outcome)
	if len(result.Offers) != 0 {
		t.Fatalf("offers = %d, want 0", len(result.Offers))
	}
	want := []models.SourceID{"amazon", "croma", "snapdeal"}
	for i, failure := range result.Manifest {
		if failure.Source != want[i] {
			t.Fatalf("manifest position %d = %s, want %s", i, failure.Source, want[i])
		}
	}
}

func TestParseAvailability(t *testing.T) {
	tests := []struct {
		text string
		want models.Availability
	}{
		{"In Stock", models.InStock},
		{"Only 2 left in stock", models.InStock},
		{"Currently unavailable", models.OutOfStock},
		{"Sold Out", models.OutOfStock},
		{"", models.UnknownStock},
		{"ships in 3 days", models.UnknownStock},
	}
	for _, tt := range tests {
		if got := parseAvailability(tt.text); got != tt.want {
			t.Errorf("parseAvailability(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
