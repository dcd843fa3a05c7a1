package chef

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"storyweaver-chef/lib/scrapers/africanstorybook"
	"storyweaver-chef/lib/scrapers/storyweaver"
	"storyweaver-chef/lib/telemetry"
	"storyweaver-chef/services/chef/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fixtureIndexSource struct {
	index africanstorybook.Index
	calls int
}

func (f *fixtureIndexSource) FetchIndex(ctx context.Context) (africanstorybook.Index, error) {
	f.calls++
	return f.index, nil
}

const filtersBody = `{
	"data": {
		"category": {
			"queryValues": [
				{"name": "Folktales"},
				{"name": "Poems"},
				{"name": "Animal Stories"}
			]
		}
	}
}`

func searchBody(totalPages int, books ...string) string {
	body := "["
	for i, book := range books {
		if i > 0 {
			body += ","
		}
		body += book
	}
	body += "]"
	return fmt.Sprintf(`{"data": %s, "metadata": {"totalPages": %d}}`, body, totalPages)
}

func bookJson(id int, slug, title, author, publisher, language, level string) string {
	return fmt.Sprintf(`{
		"id": %d,
		"slug": %q,
		"title": %q,
		"authors": [{"name": %q}],
		"description": "about %s",
		"coverImage": {"sizes": [{"url": "/covers/%s.jpg"}]},
		"language": %q,
		"level": %q,
		"publisher": {"name": %q}
	}`, id, slug, title, author, slug, slug, language, level, publisher)
}

// catalogServer stands in for the whole upstream API: filters, paginated
// listings with one persistently broken page, and the artifact downloads.
func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	goodZip := zipFixture(t, map[string][]byte{
		"story.pdf": []byte("%PDF-1.4 lion king"),
	})

	pages := map[string]string{
		"Animal Stories/1": searchBody(2,
			bookJson(11, "lion-king", "Lion King", "A. Writer", "Pratham Books", "English", "2"),
			bookJson(12, "hungry-crocodile", "The Hungry Crocodile", "B. Writer", "African Storybook Initiative", "English", "1"),
		),
		"Animal Stories/2": searchBody(2,
			bookJson(13, "gone", "Gone Book", "C. Writer", "Pratham Books", "English", "2"),
		),
		"Folktales/1": searchBody(2,
			bookJson(21, "two-dogs", "Two Dogs", "D. Writer", "StoryWeaver Community", "Hindi", "1"),
		),
		// Folktales page 2 and all Poems pages answer 500
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/books/filters", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(filtersBody))
	})
	mux.HandleFunc("/api/v1/books-search", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("categories[]") + "/" + r.URL.Query().Get("page")
		body, ok := pages[key]
		if !ok {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(body))
	})
	mux.HandleFunc("/v0/stories/download-story/lion-king.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(goodZip)
	})
	mux.HandleFunc("/v0/stories/download-story/hungry-crocodile.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 crocodile"))
	})
	mux.HandleFunc("/v0/stories/download-story/two-dogs.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 two dogs"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestService(t *testing.T, server *httptest.Server, source africanstorybook.IndexSource) (Service, string) {
	t.Helper()

	client, err := storyweaver.NewClient(context.Background(), storyweaver.ClientOptions{
		BaseUrl: server.URL,
	})
	require.NoError(t, err)

	database, err := db.Open(filepath.Join(t.TempDir(), "chef.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	outDir := t.TempDir()
	return Service{
		Client:      client,
		IndexSource: source,
		Store:       db.NewStore(database),
		OutDir:      outDir,
	}, outDir
}

func TestServiceRun(t *testing.T) {
	t.Cleanup(telemetry.SetupForTesting(t, "test:chef/service"))
	ctx := context.Background()

	source := &fixtureIndexSource{index: africanstorybook.Index{
		africanstorybook.NormalizeTitle("The Hungry Crocodile"): {
			{Id: "as-100", Title: "The Hungry Crocodile"},
		},
	}}
	service, outDir := newTestService(t, catalogServer(t), source)

	summary, err := service.Run(ctx)
	require.NoError(t, err)

	// categories come back in sorted order; Poems has no first page so it
	// contributes nothing but a recorded skip
	want := Summary{Categories: []CategorySummary{
		{Category: "Animal Stories", Crawled: 3, Emitted: 2, Skipped: 1},
		{Category: "Folktales", Crawled: 1, Emitted: 1, Skipped: 1},
		{Category: "Poems", Skipped: 1},
	}}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	// the cross-referenced book is materialized under its catalog identity
	for _, name := range []string{"11.pdf", "as-100.pdf", "21.pdf"} {
		_, err := os.Stat(filepath.Join(outDir, "files", name))
		require.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(outDir, "files", "13.pdf"))
	require.True(t, os.IsNotExist(err), "failed download must not leave a file")

	channel, err := os.ReadFile(filepath.Join(outDir, "channel.json"))
	require.NoError(t, err)
	require.Contains(t, string(channel), `"source_id": "Animal_Stories"`)
	require.Contains(t, string(channel), `"source_id": "Folktales"`)
	require.NotContains(t, string(channel), `"Poems"`)
	require.Contains(t, string(channel), `"title": "Level 2"`)
	require.Contains(t, string(channel), `"source_id": "as-100"`)

	skips, err := service.Store.Skips(ctx)
	require.NoError(t, err)
	require.Len(t, skips, 3)
	kinds := map[string]int{}
	for _, skip := range skips {
		kinds[skip.Kind]++
	}
	require.Equal(t, map[string]int{db.SkipPage: 2, db.SkipDownload: 1}, kinds)
}

func TestServiceRunIdempotent(t *testing.T) {
	t.Cleanup(telemetry.SetupForTesting(t, "test:chef/service"))
	ctx := context.Background()

	source := &fixtureIndexSource{index: africanstorybook.Index{}}
	service, outDir := newTestService(t, catalogServer(t), source)

	_, err := service.Run(ctx)
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(outDir, "channel.json"))
	require.NoError(t, err)

	_, err = service.Run(ctx)
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(outDir, "channel.json"))
	require.NoError(t, err)

	require.Equal(t, string(first), string(second))
	require.Equal(t, 1, source.calls, "second run should reuse the cached cross-reference snapshot")
}
