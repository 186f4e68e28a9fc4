package ingest

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

type staticFetcher struct {
	body string
	err  error
}

func (f staticFetcher) Fetch(_ context.Context, url string) (*FetchedDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &FetchedDocument{
		URL:        url,
		StatusCode: 200,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		FetchedAt:  time.Now(),
	}, nil
}

func TestFeedSourceSpreadsheet(t *testing.T) {
	csv := "Title,City,Start Date\n" +
		"Creek Cleanup,Austin,2026-09-19\n" +
		"Coat Drive,Dallas,\n"
	source := NewFeedSource(staticFetcher{body: csv}, nil)

	records, err := source.Records(context.Background(), ProviderConfig{
		ID: "sheet", Format: "spreadsheet", URL: "https://feeds.example/export.csv",
	})
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Get("Title") != "Creek Cleanup" || records[0].Get("City") != "Austin" {
		t.Errorf("record 0 = %+v", records[0].Fields)
	}
	if records[1].Get("Start Date") != "" {
		t.Errorf("blank cell should read empty, got %q", records[1].Get("Start Date"))
	}
}

func TestFeedSourceXML(t *testing.T) {
	xml := `<feed>
		<opportunity><title>Shore Survey</title><city>Alameda</city></opportunity>
		<opportunity><title>Bird Count</title><city>Hayward</city></opportunity>
	</feed>`
	source := NewFeedSource(staticFetcher{body: xml}, nil)

	records, err := source.Records(context.Background(), ProviderConfig{
		ID: "xmlfeed", Format: "xml", URL: "https://feeds.example/export.xml",
	})
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[1].Get("title") != "Bird Count" {
		t.Errorf("record 1 title = %q", records[1].Get("title"))
	}
}

func TestFeedSourceCrawl(t *testing.T) {
	html := `<html><body><ul>
		<li class="result-row">
			<time class="result-date" datetime="2026-09-19"></time>
			<a class="result-title" href="https://sfbay.example/vol/1">River Cleanup Crew</a>
			<span class="result-hood">(sacramento)</span>
		</li>
		<li class="result-row">
			<a class="result-title" href="https://sfbay.example/vol/2">Soup Kitchen Help</a>
		</li>
		<li class="result-row"><span class="result-hood">(no title, dropped)</span></li>
	</ul></body></html>`
	source := NewFeedSource(nil, staticFetcher{body: html})

	records, err := source.Records(context.Background(), ProviderConfig{
		ID: "crawlfeed", Format: "crawl",
		Seeds: []string{"https://sfbay.example/search/vol"},
	})
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	first := records[0]
	if first.Get("title") != "River Cleanup Crew" {
		t.Errorf("title = %q", first.Get("title"))
	}
	if first.Get("detail url") != "https://sfbay.example/vol/1" {
		t.Errorf("detail url = %q", first.Get("detail url"))
	}
	if first.Get("city") != "sacramento" {
		t.Errorf("city = %q", first.Get("city"))
	}
	if first.Get("start date") != "2026-09-19" {
		t.Errorf("start date = %q", first.Get("start date"))
	}
}

type configRecordingFetcher struct {
	staticFetcher
	got   FetchConfig
	calls int
}

func (f *configRecordingFetcher) FetchWith(ctx context.Context, url string, cfg FetchConfig) (*FetchedDocument, error) {
	f.got = cfg
	f.calls++
	return f.staticFetcher.Fetch(ctx, url)
}

func TestFeedSourceUsesProviderFetchConfig(t *testing.T) {
	fetcher := &configRecordingFetcher{staticFetcher: staticFetcher{body: "Title\nCoat Drive\n"}}
	source := NewFeedSource(fetcher, nil)

	provider := ProviderConfig{
		ID: "sheet", Format: "spreadsheet", URL: "https://feeds.example/export.csv",
		Fetch: FetchConfig{TimeoutSeconds: 60, MaxRetries: 5, RateLimitRPS: 0.5},
	}
	if _, err := source.Records(context.Background(), provider); err != nil {
		t.Fatalf("Records: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("configured fetch path called %d times, want 1", fetcher.calls)
	}
	if fetcher.got != provider.Fetch {
		t.Errorf("fetch config = %+v, want %+v", fetcher.got, provider.Fetch)
	}
}

func TestFeedSourceUnknownFormat(t *testing.T) {
	source := NewFeedSource(staticFetcher{}, nil)
	_, err := source.Records(context.Background(), ProviderConfig{ID: "x", Format: "carrier-pigeon"})
	if err == nil {
		t.Error("unknown format must error")
	}
}
