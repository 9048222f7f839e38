package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/pricescope/config"
	"github.com/use-agent/pricescope/identity"
	"github.com/use-agent/pricescope/models"
)

// SiteAdapter is a selector-configured adapter for one marketplace search
// page. The static path issues a fingerprinted GET; the rendered path
// delegates page retrieval to the injected RenderFunc and reuses the same
// extraction.
type SiteAdapter struct {
	cfg    config.SiteConfig
	render RenderFunc
}

// NewSiteAdapter builds an adapter from a site configuration. render may be
// nil when the deployment runs without a browser; FetchRendered then fails.
func NewSiteAdapter(cfg config.SiteConfig, render RenderFunc) *SiteAdapter {
	return &SiteAdapter{cfg: cfg, render: render}
}

func (a *SiteAdapter) ID() models.SourceID { return models.SourceID(a.cfg.ID) }

// SearchURL returns the source's search page URL for a query.
func (a *SiteAdapter) SearchURL(query string) string {
	return fmt.Sprintf(a.cfg.SearchURL, url.QueryEscape(query))
}

func (a *SiteAdapter) FetchStatic(ctx context.Context, query string, ident identity.Identity) (*models.RawFields, error) {
	body, _, err := fetchPage(ctx, a.SearchURL(query), ident)
	if err != nil {
		return nil, err
	}
	return a.extract(string(body))
}

func (a *SiteAdapter) FetchRendered(ctx context.Context, query string, ident identity.Identity) (*models.RawFields, error) {
	if a.render == nil {
		return nil, fmt.Errorf("source %s: no renderer configured", a.cfg.ID)
	}
	html, err := a.render(ctx, a.SearchURL(query), ident.UserAgent)
	if err != nil {
		return nil, err
	}
	return a.extract(html)
}

// extract lifts the first result card's fields out of the page. Missing
// fields are left empty; deciding whether that is acceptable belongs to the
// fallback engine, so extraction itself only errors on unparseable HTML.
func (a *SiteAdapter) extract(html string) (*models.RawFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("source %s: parse html: %w", a.cfg.ID, err)
	}

	fields := &models.RawFields{
		CurrencyHint: a.cfg.CurrencyHint,
		Body:         html,
	}

	sel := a.cfg.Selectors
	item := doc.Find(sel.Item).First()
	if item.Length() == 0 {
		return fields, nil
	}

	fields.Title = text(item, sel.Title)
	fields.PriceText = text(item, sel.Price)
	fields.RatingText = text(item, sel.Rating)
	fields.Availability = text(item, sel.Availability)
	fields.Seller = text(item, sel.Seller)

	if sel.Link != "" {
		if href, ok := item.Find(sel.Link).First().Attr("href"); ok {
			fields.URL = a.absoluteURL(href)
		}
	}
	return fields, nil
}

func text(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(item.Find(selector).First().Text())
}

// absoluteURL resolves a possibly relative product link against the site's
// search URL host.
func (a *SiteAdapter) absoluteURL(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	base, err := url.Parse(fmt.Sprintf(a.cfg.SearchURL, ""))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
