// Package africanstorybook builds the title index used to cross-reference
// books that exist in both catalogs. The africanstorybook.org landing page
// embeds its entire catalog as a `bookItems` javascript array, so the index
// comes out of one page fetch and a regexp instead of driving a browser.
package africanstorybook

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"time"

	"storyweaver-chef/lib/htmlutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"github.com/go-resty/resty/v2"
	"github.com/titanous/json5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/africanstorybook")

// Record is one externally cataloged book.
type Record struct {
	Id    string `json:"id"`
	Title string `json:"title"`
}

// Index maps a normalized title to every record sharing it. More than one
// record under a key means the title is ambiguous and must not be used for
// substitution.
type Index map[string][]Record

// NormalizeTitle is the key normalization both sides of a lookup go
// through: lower-cased, trailing whitespace removed.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimRight(title, " \t\n\r"))
}

// Lookup returns the single record matching a title, or ok=false when the
// title is unknown or ambiguous.
func (idx Index) Lookup(title string) (Record, bool) {
	key := NormalizeTitle(title)
	hits := idx[key]
	if len(hits) == 1 {
		return hits[0], true
	}
	if len(hits) == 0 && slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if near := idx.nearestKey(key); near != "" {
			slog.Debug("no exact cross-reference match", "title", key, "nearest", near)
		}
	}
	return Record{}, false
}

// nearestKey is a debugging aid for near-miss titles, it never influences
// resolution.
func (idx Index) nearestKey(key string) string {
	best := ""
	bestDist := -1
	for candidate := range idx {
		dist := matchr.Levenshtein(key, candidate)
		if bestDist < 0 || dist < bestDist {
			best = candidate
			bestDist = dist
		}
	}
	return best
}

func (idx Index) add(rec Record) {
	key := NormalizeTitle(rec.Title)
	idx[key] = append(idx[key], rec)
}

// IndexSource produces the cross-reference index. The production
// implementation scrapes the external catalog, tests substitute fixtures.
type IndexSource interface {
	FetchIndex(ctx context.Context) (Index, error)
}

type Client struct {
	Http *resty.Client
}

type ClientOptions struct {
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(time.Second * 60)

	return &Client{Http: client}, nil
}

var bookItemsRegex = regexp.MustCompile(`(?s)bookItems *= *(\[.*?\]) *;`)

// FetchIndex downloads the landing page and decodes the embedded catalog
// array out of its scripts.
func (c *Client) FetchIndex(ctx context.Context) (Index, error) {
	ctx, span := tracer.Start(ctx, "client:FetchIndex")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch landing page")
		return nil, err
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "landing page returned non-200")
		return nil, fmt.Errorf("landing page returned status %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse landing page html")
		return nil, err
	}

	index, err := indexFromScripts(doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("titles", len(index)))
	return index, nil
}

func indexFromScripts(doc *goquery.Document) (Index, error) {
	for _, script := range doc.Find("script").Nodes {
		text := htmlutil.GetText(script)
		groups := bookItemsRegex.FindStringSubmatch(text)
		if len(groups) < 2 {
			continue
		}

		var records []Record
		// the array is a javascript literal, not strict json
		err := json5.Unmarshal([]byte(groups[1]), &records)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bookItems: %w", err)
		}

		index := Index{}
		for _, rec := range records {
			// titles arrive with html entities baked in
			rec.Title = html.UnescapeString(rec.Title)
			index.add(rec)
		}
		return index, nil
	}
	return nil, fmt.Errorf("could not find bookItems in any script")
}
