package chef

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"storyweaver-chef/lib/curation"
	"storyweaver-chef/lib/scrapers/africanstorybook"
	"storyweaver-chef/lib/scrapers/storyweaver"
	"storyweaver-chef/services/chef/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/chef")

const (
	channelSourceDomain = "storyweaver.org.in"
	channelSourceId     = "Pratham_Books_StoryWeaver"
	channelTitle        = "Pratham Books' StoryWeaver"
	channelLanguage     = "en"
)

// a scraped cross-reference snapshot stays usable for a week before it is
// fetched again
const crossrefLifetime = time.Hour * 24 * 7

type Service struct {
	Client      *storyweaver.Client
	IndexSource africanstorybook.IndexSource
	Store       *db.Store
	OutDir      string
}

type CategorySummary struct {
	Category string
	Crawled  int
	Emitted  int
	Skipped  int
}

type Summary struct {
	Categories []CategorySummary
}

// Run crawls the whole catalog, builds the channel tree and writes it with
// its document files under OutDir.
func (s Service) Run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	filesDir := filepath.Join(s.OutDir, "files")
	err := os.MkdirAll(filesDir, 0755)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create output directory")
		return Summary{}, err
	}

	channel, summary, err := s.ConstructChannel(ctx, filesDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct channel")
		return Summary{}, err
	}

	err = curation.WriteTree(filepath.Join(s.OutDir, "channel.json"), channel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write channel tree")
		return Summary{}, err
	}
	return summary, nil
}

// ConstructChannel builds the full category → publisher → language → level
// → book tree. Categories are processed one after another, each fully
// crawled before the next begins.
func (s Service) ConstructChannel(ctx context.Context, filesDir string) (*curation.ChannelNode, Summary, error) {
	ctx, span := tracer.Start(ctx, "ConstructChannel")
	defer span.End()

	index, err := s.crossrefIndex(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build cross-reference index")
		return nil, Summary{}, err
	}

	categories, err := s.Client.Categories(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list categories")
		return nil, Summary{}, err
	}
	sort.Strings(categories)

	channel := &curation.ChannelNode{
		SourceDomain: channelSourceDomain,
		SourceId:     channelSourceId,
		Title:        channelTitle,
		Language:     channelLanguage,
		Thumbnail:    "thumbnail.png",
	}

	var summary Summary
	for _, category := range categories {
		categorySummary := s.crawlCategory(ctx, channel, category, index, filesDir)
		summary.Categories = append(summary.Categories, categorySummary)
	}

	return channel, summary, nil
}

func (s Service) crawlCategory(
	ctx context.Context,
	channel *curation.ChannelNode,
	category string,
	index africanstorybook.Index,
	filesDir string,
) CategorySummary {
	ctx, span := tracer.Start(ctx, "crawlCategory")
	defer span.End()
	span.SetAttributes(attribute.String("category", category))

	books, pageSkips, err := s.fetchCategoryBooks(ctx, category)
	if err != nil {
		// no page count means nothing to crawl for this key, the run
		// continues with the remaining categories
		slog.WarnContext(ctx, "skipping category", "category", category, "err", err)
		s.recordPageSkip(ctx, pageSkip{Category: category, Page: 1, Err: err})
		return CategorySummary{Category: category, Skipped: 1}
	}
	for _, skip := range pageSkips {
		s.recordPageSkip(ctx, skip)
	}

	tree := buildCategoryTree(books)

	emit := &emitter{
		client:   s.Client,
		resolver: crossrefResolver{index: index},
		filesDir: filesDir,
		store:    s.Store,
	}

	categoryTopic := curation.NewTopic(underscored(category), category)
	tree.emit(ctx, categoryTopic, func(ctx context.Context, books []Book, topic curation.Node) {
		emit.emitBooks(ctx, category, books, topic)
	})
	if len(categoryTopic.Children()) > 0 {
		channel.AddChild(categoryTopic)
	}

	slog.InfoContext(ctx, "finished category",
		"category", category,
		"crawled", len(books),
		"emitted", emit.emitted,
		"skipped", emit.skipped,
	)
	return CategorySummary{
		Category: category,
		Crawled:  len(books),
		Emitted:  emit.emitted,
		Skipped:  emit.skipped + len(pageSkips),
	}
}

func (s Service) recordPageSkip(ctx context.Context, skip pageSkip) {
	err := s.Store.RecordSkip(ctx, db.Skip{
		At:       time.Now(),
		Kind:     db.SkipPage,
		Category: skip.Category,
		Url:      s.Client.SearchURL(skip.Category, skip.Page),
		Error:    skip.Err.Error(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record page skip", "err", err)
	}
}

// crossrefIndex loads the cached external index when it is fresh enough,
// otherwise scrapes a new snapshot and caches it.
func (s Service) crossrefIndex(ctx context.Context) (africanstorybook.Index, error) {
	ctx, span := tracer.Start(ctx, "crossrefIndex")
	defer span.End()

	contents, fetchedAt, err := s.Store.CrossrefIndex(ctx)
	if err == nil && time.Since(fetchedAt) < crossrefLifetime {
		var index africanstorybook.Index
		err = json.Unmarshal(contents, &index)
		if err == nil {
			span.SetStatus(codes.Ok, "CACHE HIT")
			return index, nil
		}
		span.RecordError(err)
	}

	index, err := s.IndexSource.FetchIndex(ctx)
	if err != nil {
		return nil, err
	}

	contents, err = json.Marshal(index)
	if err != nil {
		return nil, err
	}
	err = s.Store.SaveCrossrefIndex(ctx, contents, time.Now())
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to cache cross-reference index", "err", err)
	}
	return index, nil
}
