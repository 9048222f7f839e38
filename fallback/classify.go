// Package fallback decides, per source, whether a lightweight fetch sufficed
// or a full browser render is required, and retries transient failures a
// bounded number of times. The decision procedure is a pure function over a
// fetched response; the retry loop around it is the only state machine.
package fallback

import (
	"strings"

	"github.com/use-agent/pricescope/config"
	"github.com/use-agent/pricescope/models"
)

// Decision is the outcome of classifying a lightweight response.
type Decision int

const (
	// Accept means the static result carries everything we need.
	Accept Decision = iota
	// NeedsRender means the page is a shell or placeholder and must be
	// rendered before extraction can succeed.
	NeedsRender
	// BotDetected means the source served a challenge page. Rendering will
	// not clear an active challenge within budget, so the attempt fails.
	BotDetected
)

func (d Decision) String() string {
	switch d {
	case NeedsRender:
		return "needs_render"
	case BotDetected:
		return "bot_detected"
	default:
		return "accept"
	}
}

// Classify applies the fixed heuristics to a lightweight response, in
// precedence order: required fields, placeholder markers, challenge markers,
// content size. An optional visible-text floor (cfg.MinVisibleText > 0)
// catches SPA shells whose raw body clears the size check on markup alone.
func Classify(fields *models.RawFields, cfg config.ScrapeConfig) Decision {
	if fields.Title == "" || fields.PriceText == "" {
		// Before concluding the page needs a render, check it is not a
		// challenge page; escalating those just burns the render budget.
		if containsAny(fields.Body, cfg.BotMarkers) {
			return BotDetected
		}
		return NeedsRender
	}

	if containsAny(fields.Body, cfg.LoadingMarkers) {
		return NeedsRender
	}
	if containsAny(fields.Body, cfg.BotMarkers) {
		return BotDetected
	}
	if len(fields.Body) < cfg.MinContentLength {
		return NeedsRender
	}
	if cfg.MinVisibleText > 0 && len(visibleText(fields.Body)) < cfg.MinVisibleText {
		return NeedsRender
	}
	return Accept
}

// HasRequiredFields reports whether the extraction produced the fields an
// offer cannot exist without.
func HasRequiredFields(fields *models.RawFields) bool {
	return fields.Title != "" && fields.PriceText != ""
}

func containsAny(body string, markers []string) bool {
	if body == "" || len(markers) == 0 {
		return false
	}
	lower := strings.ToLower(body)
	for _, m := range markers {
		if m == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
