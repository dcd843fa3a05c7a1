package storyweaver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"storyweaver-chef/lib/htmlutil"
	"storyweaver-chef/lib/restyutil"
	"storyweaver-chef/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var LoginFailed = fmt.Errorf("Failed to login to your account.")

const (
	signInPagePath  = "/users/sign-in"
	signInPath      = "/api/v1/users/sign_in"
	filtersPath     = "/api/v1/books/filters"
	bookSearchPath  = "/api/v1/books-search"
	downloadPathFmt = "/v0/stories/download-story/%s.pdf"
)

type Client struct {
	BaseUrl  *url.URL
	Http     *resty.Client
	PageSize int
	cache    responseCache
}

type ClientOptions struct {
	BaseUrl  string
	PageSize int
	// optional cache for listing responses, nil disables caching
	Cache *badger.DB
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 24
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/storyweaver/http")
	restyutil.InstrumentClient(client, restyInstrumentOutput)

	c := &Client{
		BaseUrl:  baseUrl,
		Http:     client,
		PageSize: opts.PageSize,
		cache: responseCache{
			db:      opts.Cache,
			baseUrl: baseUrl,
		},
	}
	return c, nil
}

// Login fetches the sign-in page to scrape its csrf token, posts the
// credentials and verifies the account email echoed back by the server.
// Nothing downstream works without the session cookie this leaves in the
// jar, so any failure here is fatal for the run.
func (c *Client) Login(ctx context.Context, email, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(signInPagePath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch sign-in page")
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse sign-in page html")
		return err
	}

	authenticityToken, err := htmlutil.HiddenInputValue(doc, "authenticity_token")
	if err != nil {
		span.SetStatus(codes.Error, "failed to find authenticity token")
		return err
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"authenticity_token":       authenticityToken,
			"api_v1_user[email]":       email,
			"api_v1_user[password]":    password,
			"api_v1_user[remember_me]": "false",
		}).
		Post(signInPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}

	var signIn signInResponse
	err = json.Unmarshal(res.Body(), &signIn)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login response")
		return fmt.Errorf("unexpected login response, has the upstream API changed? %w", err)
	}
	if signIn.Email != email {
		span.SetStatus(codes.Error, LoginFailed.Error())
		return LoginFailed
	}
	return nil
}

// Categories returns the category query values the listing API exposes as
// crawl filters.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "client:Categories")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(filtersPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch filters")
		return nil, err
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "filters returned non-200")
		return nil, fmt.Errorf("filters request returned status %d", res.StatusCode())
	}

	var filters filtersResponse
	err = json.Unmarshal(res.Body(), &filters)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse filters")
		return nil, err
	}

	var categories []string
	for _, v := range filters.Data.Category.QueryValues {
		categories = append(categories, v.Name)
	}
	span.SetAttributes(attribute.Int("categories", len(categories)))
	return categories, nil
}

func (c *Client) searchEndpoint(category string, page int) string {
	query := url.Values{}
	query.Add("page", strconv.Itoa(page))
	query.Add("per_page", strconv.Itoa(c.PageSize))
	query.Add("categories[]", category)
	return bookSearchPath + "?" + query.Encode()
}

// SearchURL renders the full listing url for a category page, mostly for
// log and skip-report context.
func (c *Client) SearchURL(category string, page int) string {
	ref, err := c.BaseUrl.Parse(c.searchEndpoint(category, page))
	if err != nil {
		return c.searchEndpoint(category, page)
	}
	return ref.String()
}

// SearchPage fetches one listing page for a category. The page count in the
// returned value is the server-reported total for the category and is only
// meaningful on the first page of a crawl.
func (c *Client) SearchPage(ctx context.Context, category string, page int) (SearchPage, error) {
	ctx, span := tracer.Start(ctx, "client:SearchPage")
	defer span.End()
	span.SetAttributes(
		attribute.String("category", category),
		attribute.Int("page", page),
	)

	endpoint := c.searchEndpoint(category, page)

	body, err := c.cache.get(ctx, endpoint)
	if err == nil {
		span.SetStatus(codes.Ok, "CACHE HIT")
		return parseSearchPage(body)
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch listing page")
		return SearchPage{}, err
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "listing page returned non-200")
		return SearchPage{}, fmt.Errorf(
			"listing page %d for %q returned status %d",
			page, category, res.StatusCode(),
		)
	}

	parsed, err := parseSearchPage(res.Body())
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse listing page")
		return SearchPage{}, err
	}

	err = c.cache.set(ctx, endpoint, res.Body())
	if err != nil {
		span.RecordError(err)
	}
	return parsed, nil
}

func parseSearchPage(body []byte) (SearchPage, error) {
	var search searchResponse
	err := json.Unmarshal(body, &search)
	if err != nil {
		return SearchPage{}, err
	}
	return SearchPage{
		Books:      search.Data,
		TotalPages: search.Metadata.TotalPages,
	}, nil
}

// DownloadURL renders the fixed download template for a book slug. The
// resource behind it is usually a zip with the pdf inside.
func (c *Client) DownloadURL(slug string) string {
	ref, err := c.BaseUrl.Parse(fmt.Sprintf(downloadPathFmt, slug))
	if err != nil {
		return fmt.Sprintf(downloadPathFmt, slug)
	}
	return ref.String()
}

// Download fetches the artifact for a book slug and returns its raw bytes.
func (c *Client) Download(ctx context.Context, slug string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:Download")
	defer span.End()
	span.SetAttributes(attribute.String("slug", slug))

	res, err := c.Http.R().
		SetContext(ctx).
		Get(fmt.Sprintf(downloadPathFmt, slug))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch artifact")
		return nil, err
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "artifact returned non-200")
		return nil, fmt.Errorf("download of %q returned status %d", slug, res.StatusCode())
	}
	return res.Body(), nil
}
