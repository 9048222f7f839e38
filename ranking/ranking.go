package ranking

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/use-agent/pricescope/config"
	"github.com/use-agent/pricescope/models"
)

// Engine normalizes and ranks the raw offers of a scrape outcome. It never
// errors: failed sources contribute manifest entries, offers that cannot be
// normalized are dropped.
type Engine struct {
	converter *Converter
	priority  map[models.SourceID]int
}

// NewEngine creates an Engine from the ranking configuration.
func NewEngine(cfg config.RankingConfig) *Engine {
	priority := make(map[models.SourceID]int, len(cfg.SourcePriority))
	for i, id := range cfg.SourcePriority {
		priority[models.SourceID(id)] = i
	}
	return &Engine{
		converter: NewConverter(cfg.ReferenceCurrency, cfg.Rates),
		priority:  priority,
	}
}

// Rank produces the final ordered result for one outcome.
func (e *Engine) Rank(outcome *models.ScrapeOutcome) *models.RankedResult {
	var offers []models.NormalizedOffer
	var manifest []models.FetchFailure

	for _, res := range outcome.PerSource {
		switch {
		case res.Offer != nil:
			if norm, ok := e.Normalize(res.Offer); ok {
				offers = append(offers, norm)
			}
		case res.Failure != nil:
			manifest = append(manifest, *res.Failure)
		}
	}

	offers = dedupe(offers)
	e.Sort(offers)

	// Deterministic manifest order regardless of completion order.
	sort.Slice(manifest, func(i, j int) bool { return manifest[i].Source < manifest[j].Source })

	return &models.RankedResult{
		Query:    outcome.Query,
		Offers:   offers,
		Manifest: manifest,
		Elapsed:  outcome.Elapsed,
	}
}

// Normalize parses and converts one raw offer. The second return is false
// when the offer must be dropped: unparseable or negative price, or a
// currency absent from the conversion table.
func (e *Engine) Normalize(raw *models.RawOffer) (models.NormalizedOffer, bool) {
	amount, ok := ParseAmount(raw.PriceText)
	if !ok || amount.Sign() < 0 {
		return models.NormalizedOffer{}, false
	}

	currency := DetectCurrency(raw.PriceText, raw.CurrencyHint)
	if currency == "" {
		return models.NormalizedOffer{}, false
	}
	price, ok := e.converter.ToReference(amount, currency)
	if !ok {
		return models.NormalizedOffer{}, false
	}

	return models.NormalizedOffer{
		Source:       raw.Source,
		Title:        strings.TrimSpace(raw.Title),
		Price:        price,
		Currency:     e.converter.Reference(),
		Rating:       parseRating(raw.RatingText),
		Availability: parseAvailability(raw.Availability),
		Seller:       raw.Seller,
		URL:          raw.URL,
		FetchedVia:   raw.FetchedVia,
		FetchedAt:    raw.FetchedAt,
	}, true
}

// Sort orders offers in place: price ascending, then rating descending,
// then configured source priority, then title. The chain is total, so
// sorting is stable and idempotent.
func (e *Engine) Sort(offers []models.NormalizedOffer) {
	sort.SliceStable(offers, func(i, j int) bool {
		return e.Less(offers[i], offers[j])
	})
}

// Less is the total order over normalized offers.
func (e *Engine) Less(a, b models.NormalizedOffer) bool {
	if cmp := a.Price.Cmp(b.Price); cmp != 0 {
		return cmp < 0
	}
	ra, rb := ratingValue(a.Rating), ratingValue(b.Rating)
	if ra != rb {
		return ra > rb
	}
	pa, pb := e.sourceRank(a.Source), e.sourceRank(b.Source)
	if pa != pb {
		return pa < pb
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.Source < b.Source
}

// sourceRank returns the configured precedence index; unconfigured sources
// order after configured ones, alphabetically via the Less fallthrough.
func (e *Engine) sourceRank(id models.SourceID) int {
	if rank, ok := e.priority[id]; ok {
		return rank
	}
	return len(e.priority)
}

func ratingValue(r *float64) float64 {
	if r == nil {
		return -1
	}
	return *r
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// dedupe collapses offers whose source and normalized title are identical,
// keeping the most recently fetched.
func dedupe(offers []models.NormalizedOffer) []models.NormalizedOffer {
	type key struct {
		source models.SourceID
		title  string
	}
	seen := make(map[key]int, len(offers))
	var out []models.NormalizedOffer

	for _, offer := range offers {
		k := key{offer.Source, normalizeTitle(offer.Title)}
		if idx, dup := seen[k]; dup {
			if offer.FetchedAt.After(out[idx].FetchedAt) {
				out[idx] = offer
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, offer)
	}
	return out
}

func normalizeTitle(title string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), " ")
}

var ratingRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// parseRating extracts a [0,5] rating from free-form text like
// "4.2 out of 5 stars". Values outside the scale are treated as absent.
func parseRating(text string) *float64 {
	m := ratingRe.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

// parseAvailability maps free-form stock text onto the closed enum.
func parseAvailability(text string) models.Availability {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return models.UnknownStock
	case strings.Contains(t, "out of stock"), strings.Contains(t, "unavailable"),
		strings.Contains(t, "sold out"):
		return models.OutOfStock
	case strings.Contains(t, "in stock"), strings.Contains(t, "available"),
		strings.Contains(t, "left in stock"):
		return models.InStock
	default:
		return models.UnknownStock
	}
}
