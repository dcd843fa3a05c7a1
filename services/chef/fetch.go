package chef

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// fetchCategoryBooks crawls every listing page for one category. The total
// page count is read once from the first page and held fixed for the rest
// of the crawl. A failed page is reported as a skip and does not abort the
// remaining pages; a failed first page fails the whole category since there
// is no page count to continue with.
func (s Service) fetchCategoryBooks(ctx context.Context, category string) ([]Book, []pageSkip, error) {
	ctx, span := tracer.Start(ctx, "fetchCategoryBooks")
	defer span.End()
	span.SetAttributes(attribute.String("category", category))

	slog.InfoContext(ctx, "crawling books", "category", category)

	first, err := s.Client.SearchPage(ctx, category, 1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch first listing page")
		return nil, nil, err
	}
	totalPages := first.TotalPages
	slog.InfoContext(ctx, "category page count", "category", category, "pages", totalPages)

	var books []Book
	for _, raw := range first.Books {
		books = append(books, normalizeBook(s.Client, raw))
	}

	var skips []pageSkip
	for page := 2; page <= totalPages; page++ {
		result, err := s.Client.SearchPage(ctx, category, page)
		if err != nil {
			// usually a transient 500, the rest of the crawl goes on
			slog.WarnContext(ctx, "skipping listing page",
				"category", category, "page", page, "err", err)
			skips = append(skips, pageSkip{Category: category, Page: page, Err: err})
			continue
		}
		for _, raw := range result.Books {
			books = append(books, normalizeBook(s.Client, raw))
		}
	}

	span.SetAttributes(attribute.Int("books", len(books)))
	return books, skips, nil
}

type pageSkip struct {
	Category string
	Page     int
	Err      error
}
