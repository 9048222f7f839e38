package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceID identifies one configured marketplace source. The set of valid
// values is closed at configuration time; it is used as the key for adapter
// lookup, per-source status, and the result manifest.
type SourceID string

// FetchVia records which fetch path produced a raw offer.
type FetchVia string

const (
	ViaStatic   FetchVia = "static"
	ViaRendered FetchVia = "rendered"
)

// Availability is the normalized stock state of an offer.
type Availability string

const (
	InStock      Availability = "in_stock"
	OutOfStock   Availability = "out_of_stock"
	UnknownStock Availability = "unknown"
)

// RawFields is the untyped output of a single adapter fetch, before the
// fallback engine has decided whether it is acceptable. Title and PriceText
// are the required fields; everything else is best-effort.
type RawFields struct {
	Title        string
	PriceText    string
	CurrencyHint string
	RatingText   string
	Availability string
	Seller       string
	URL          string

	// Body is the raw page body the fields were extracted from. The fallback
	// engine inspects it for placeholder and bot-challenge markers.
	Body string
}

// RawOffer is a source's accepted output for one query. Immutable once
// returned by the fallback engine.
type RawOffer struct {
	Source       SourceID  `json:"source"`
	Title        string    `json:"title"`
	PriceText    string    `json:"price_text"`
	CurrencyHint string    `json:"currency_hint,omitempty"`
	RatingText   string    `json:"rating_text,omitempty"`
	Availability string    `json:"availability,omitempty"`
	Seller       string    `json:"seller,omitempty"`
	URL          string    `json:"url"`
	FetchedVia   FetchVia  `json:"fetched_via"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// FailureKind classifies a terminal per-source failure.
type FailureKind string

const (
	FailTimeout          FailureKind = "timeout"
	FailNetwork          FailureKind = "network"
	FailParse            FailureKind = "parse"
	FailBotDetected      FailureKind = "bot_detected"
	FailExhaustedRetries FailureKind = "exhausted_retries"
)

// FetchFailure is the terminal outcome of a source that produced no offer.
type FetchFailure struct {
	Source SourceID    `json:"source"`
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail,omitempty"`
}

// SourceResult is the per-source slot in a ScrapeOutcome: exactly one of
// Offer or Failure is set.
type SourceResult struct {
	Offer   *RawOffer     `json:"offer,omitempty"`
	Failure *FetchFailure `json:"failure,omitempty"`
}

// OK reports whether the source produced an offer.
func (r SourceResult) OK() bool { return r.Offer != nil }

// ScrapeOutcome is the aggregate of one orchestrator run. It contains one
// entry per configured source and is read-only once returned.
type ScrapeOutcome struct {
	Query     string                      `json:"query"`
	PerSource map[SourceID]SourceResult   `json:"per_source"`
	Elapsed   time.Duration               `json:"elapsed"`
}

// NormalizedOffer is a RawOffer with its price parsed and converted into the
// reference currency and its rating mapped onto [0,5]. Price is always
// non-negative; offers that cannot be normalized are dropped upstream.
type NormalizedOffer struct {
	Source       SourceID        `json:"source"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Rating       *float64        `json:"rating,omitempty"`
	Availability Availability    `json:"availability"`
	Seller       string          `json:"seller,omitempty"`
	URL          string          `json:"url"`
	FetchedVia   FetchVia        `json:"fetched_via"`
	FetchedAt    time.Time       `json:"-"`
}

// RankedResult is the final output of a search: normalized offers in total
// order plus a manifest of the sources that contributed nothing and why.
type RankedResult struct {
	Query    string            `json:"query"`
	Offers   []NormalizedOffer `json:"offers"`
	Manifest []FetchFailure    `json:"manifest"`
	Elapsed  time.Duration     `json:"elapsed"`
}
