package chef

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storyweaver-chef/lib/curation"
	"storyweaver-chef/lib/scrapers/storyweaver"
	"storyweaver-chef/services/chef/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const licenseHolder = "StoryWeaver"

var errNoPdfInArchive = errors.New("archive contains no pdf entry")

type emitter struct {
	client   *storyweaver.Client
	resolver crossrefResolver
	filesDir string
	store    *db.Store

	emitted int
	skipped int
}

// emitBooks resolves every book of a leaf into a document node under
// `topic`. A book whose artifact cannot be fetched, or whose archive holds
// no pdf, is logged, recorded and dropped; the rest of the leaf continues.
func (e *emitter) emitBooks(ctx context.Context, category string, books []Book, topic curation.Node) {
	for _, book := range books {
		node, err := e.emitBook(ctx, book)
		if err != nil {
			slog.WarnContext(ctx, "skipping book",
				"category", category,
				"book", book.SourceId,
				"url", book.Link,
				"err", err,
			)
			e.recordSkip(ctx, category, book, err)
			e.skipped++
			continue
		}
		topic.AddChild(node)
		e.emitted++
	}
}

func (e *emitter) recordSkip(ctx context.Context, category string, book Book, cause error) {
	kind := db.SkipDownload
	if errors.Is(cause, errNoPdfInArchive) {
		kind = db.SkipNoPdf
	}
	err := e.store.RecordSkip(ctx, db.Skip{
		At:       time.Now(),
		Kind:     kind,
		Category: category,
		BookId:   book.SourceId,
		Url:      book.Link,
		Error:    cause.Error(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record skip", "err", err)
	}
}

// emitBook downloads a book's artifact and builds its document node. The
// node is constructed only once every required piece resolved, so a failed
// book never leaves a half-built node behind.
func (e *emitter) emitBook(ctx context.Context, book Book) (*curation.DocumentNode, error) {
	ctx, span := tracer.Start(ctx, "emitBook")
	defer span.End()
	span.SetAttributes(attribute.String("book", book.SourceId))

	data, err := e.client.Download(ctx, book.Slug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download artifact")
		return nil, err
	}

	namespace, sourceId := e.resolver.resolve(book)
	path := filepath.Join(e.filesDir, sourceId+".pdf")

	if isZipArchive(data) {
		err = extractPdf(data, path)
	} else {
		err = os.WriteFile(path, data, 0644)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to materialize document")
		return nil, err
	}

	return &curation.DocumentNode{
		SourceId:    sourceId,
		DomainNs:    namespace,
		Title:       book.Title,
		Author:      book.Author,
		Provider:    book.Publisher,
		Description: book.Description,
		Thumbnail:   book.Thumbnail,
		Language:    book.Language,
		License:     curation.CCBY(licenseHolder),
		Files:       []curation.DocumentFile{{Path: path}},
	}, nil
}

func isZipArchive(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

// extractPdf writes the archive to a scratch file, copies its first pdf
// entry to `dest` and removes the scratch file on every path.
func extractPdf(data []byte, dest string) error {
	tempf, err := os.CreateTemp("", "storyweaver-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tempf.Name())
	defer tempf.Close()

	_, err = tempf.Write(data)
	if err != nil {
		return err
	}

	archive, err := zip.OpenReader(tempf.Name())
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, entry := range archive.File {
		if !strings.EqualFold(filepath.Ext(entry.Name), ".pdf") {
			continue
		}
		return copyZipEntry(entry, dest)
	}
	return errNoPdfInArchive
}

func copyZipEntry(entry *zip.File, dest string) error {
	in, err := entry.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
