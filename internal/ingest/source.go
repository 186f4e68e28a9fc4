package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"
)

// FeedSource turns a provider's configured endpoint into raw records. The
// three feed formats share a Fetcher for plain documents; crawl providers go
// through the crawler instead.
type FeedSource struct {
	Fetcher Fetcher
	Crawler Fetcher
}

func NewFeedSource(fetcher, crawler Fetcher) *FeedSource {
	return &FeedSource{Fetcher: fetcher, Crawler: crawler}
}

// configurableFetcher is the optional capability for per-provider limits.
// Both bundled fetchers implement it; plain Fetchers get default limits.
type configurableFetcher interface {
	FetchWith(ctx context.Context, url string, cfg FetchConfig) (*FetchedDocument, error)
}

func fetchFor(ctx context.Context, fetcher Fetcher, url string, provider ProviderConfig) (*FetchedDocument, error) {
	if cf, ok := fetcher.(configurableFetcher); ok {
		return cf.FetchWith(ctx, url, provider.Fetch)
	}
	return fetcher.Fetch(ctx, url)
}

func (s *FeedSource) Records(ctx context.Context, provider ProviderConfig) ([]*RawRecord, error) {
	switch provider.Format {
	case "xml":
		return s.xmlRecords(ctx, provider)
	case "spreadsheet":
		return s.spreadsheetRecords(ctx, provider)
	case "crawl":
		return s.crawlRecords(ctx, provider)
	default:
		return nil, fmt.Errorf("provider %q has unknown format %q", provider.ID, provider.Format)
	}
}

// xmlRecords flattens every opportunity element of an XML feed document.
// Feeds disagree on the element name, so a couple of common ones are tried.
func (s *FeedSource) xmlRecords(ctx context.Context, provider ProviderConfig) ([]*RawRecord, error) {
	doc, err := fetchFor(ctx, s.Fetcher, provider.URL, provider)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", provider.URL, err)
	}
	defer doc.Body.Close()

	root, err := xmlquery.Parse(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("parse xml feed %s: %w", provider.URL, err)
	}

	nodes := xmlquery.Find(root, "//opportunity")
	if len(nodes) == 0 {
		nodes = xmlquery.Find(root, "//item")
	}

	records := make([]*RawRecord, 0, len(nodes))
	for _, node := range nodes {
		records = append(records, RawRecordFromXML(node))
	}
	return records, nil
}

// spreadsheetRecords reads a CSV export into the sparse grid and converts
// each data row against the first row's headers.
func (s *FeedSource) spreadsheetRecords(ctx context.Context, provider ProviderConfig) ([]*RawRecord, error) {
	doc, err := fetchFor(ctx, s.Fetcher, provider.URL, provider)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", provider.URL, err)
	}
	defer doc.Body.Close()

	reader := csv.NewReader(doc.Body)
	reader.FieldsPerRecord = -1 // exports pad rows unevenly

	grid := NewGrid()
	row := 0
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv feed %s: %w", provider.URL, err)
		}
		for col, cell := range cells {
			grid.Set(row, col, cell)
		}
		row++
	}

	records := make([]*RawRecord, 0, grid.Rows())
	for dataRow := 1; dataRow < grid.Rows(); dataRow++ {
		rec := grid.RecordAt(0, dataRow)
		if len(rec.Fields) == 0 {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// crawlRecords walks the provider's seed pages through the crawler and
// scrapes listing rows. The selectors cover the classifieds-style markup the
// crawl providers use.
func (s *FeedSource) crawlRecords(ctx context.Context, provider ProviderConfig) ([]*RawRecord, error) {
	fetcher := s.Crawler
	if fetcher == nil {
		fetcher = s.Fetcher
	}

	var records []*RawRecord
	for _, seed := range provider.Seeds {
		doc, err := fetchFor(ctx, fetcher, seed, provider)
		if err != nil {
			return nil, fmt.Errorf("crawl seed %s: %w", seed, err)
		}

		page, err := goquery.NewDocumentFromReader(doc.Body)
		doc.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("parse listing page %s: %w", seed, err)
		}

		page.Find("li.result-row, li.cl-static-search-result").Each(func(_ int, row *goquery.Selection) {
			rec := NewRawRecord(nil)
			title := row.Find("a.result-title, div.title").First()
			rec.Set("title", cleanText(title.Text()))
			if href, ok := title.Attr("href"); ok {
				rec.Set("detail url", href)
			} else if href, ok := row.Find("a").First().Attr("href"); ok {
				rec.Set("detail url", href)
			}
			if loc := cleanText(row.Find("span.result-hood, div.location").First().Text()); loc != "" {
				rec.Set("city", strings.Trim(loc, "()"))
			}
			if date, ok := row.Find("time.result-date").First().Attr("datetime"); ok {
				rec.Set("start date", date)
			}
			if rec.Get("title") != "" {
				records = append(records, rec)
			}
		})
	}
	return records, nil
}
