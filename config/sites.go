package config

// Selectors are the CSS selectors used to lift offer fields out of a search
// results page. Item scopes a single result card; the rest are resolved
// relative to it.
type Selectors struct {
	Item         string
	Title        string
	Price        string
	Rating       string
	Availability string
	Seller       string
	Link         string
}

// SiteConfig describes one configured source. SearchURL must contain a
// single %s verb for the URL-escaped query.
type SiteConfig struct {
	ID           string
	SearchURL    string
	Selectors    Selectors
	CurrencyHint string
}

// Builtin site set. Selector maintenance is expected churn; move a site out
// of this list via PRICESCOPE_SOURCES rather than editing code when it breaks.
var defaultSites = []SiteConfig{
	{
		ID:        "amazon",
		SearchURL: "https://www.amazon.in/s?k=%s",
		Selectors: Selectors{
			Item:         "div[data-component-type='s-search-result']",
			Title:        "h2 a span",
			Price:        "span.a-price span.a-offscreen",
			Rating:       "span.a-icon-alt",
			Availability: "span.a-color-price",
			Link:         "h2 a",
		},
		CurrencyHint: "INR",
	},
	{
		ID:        "flipkart",
		SearchURL: "https://www.flipkart.com/search?q=%s",
		Selectors: Selectors{
			Item:   "div._1AtVbE div._13oc-S",
			Title:  "div._4rR01T",
			Price:  "div._30jeq3",
			Rating: "div._3LWZlK",
			Link:   "a._1fQZEK",
		},
		CurrencyHint: "INR",
	},
	{
		ID:        "croma",
		SearchURL: "https://www.croma.com/searchB?q=%s",
		Selectors: Selectors{
			Item:   "li.product-item",
			Title:  "h3.product-title a",
			Price:  "span.amount",
			Rating: "span.rating-text",
			Link:   "h3.product-title a",
		},
		CurrencyHint: "INR",
	},
	{
		ID:        "myntra",
		SearchURL: "https://www.myntra.com/%s",
		Selectors: Selectors{
			Item:   "li.product-base",
			Title:  "h4.product-product",
			Price:  "span.product-discountedPrice",
			Seller: "h3.product-brand",
			Link:   "a",
		},
		CurrencyHint: "INR",
	},
	{
		ID:        "snapdeal",
		SearchURL: "https://www.snapdeal.com/search?keyword=%s",
		Selectors: Selectors{
			Item:   "div.product-tuple-listing",
			Title:  "p.product-title",
			Price:  "span.product-price",
			Rating: "div.filled-stars",
			Link:   "a.dp-widget-link",
		},
		CurrencyHint: "INR",
	},
}

// Sites returns the enabled site configurations. PRICESCOPE_SOURCES, when
// set, restricts the builtin set to the listed IDs in the given order.
func Sites() []SiteConfig {
	enabled := envSliceOr("PRICESCOPE_SOURCES", nil)
	if len(enabled) == 0 {
		return defaultSites
	}
	byID := make(map[string]SiteConfig, len(defaultSites))
	for _, s := range defaultSites {
		byID[s.ID] = s
	}
	var out []SiteConfig
	for _, id := range enabled {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}
