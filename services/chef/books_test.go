package chef

import (
	"context"
	"encoding/json"
	"testing"

	"storyweaver-chef/lib/scrapers/storyweaver"
)

func TestNormalizeBook(t *testing.T) {
	client, err := storyweaver.NewClient(context.Background(), storyweaver.ClientOptions{
		BaseUrl: "https://storyweaver.org.in",
	})
	if err != nil {
		t.Fatal(err)
	}

	var raw storyweaver.RawBook
	err = json.Unmarshal([]byte(`{
		"id": 11,
		"slug": "11-the-first-story",
		"title": "  The First\n Story ",
		"authors": [{"name": "A. Author"}, {"name": "B. Author"}],
		"description": "a story",
		"coverImage": "unexpected string",
		"language": "English",
		"level": 2,
		"publisher": {"name": "Pratham Books"}
	}`), &raw)
	if err != nil {
		t.Fatal(err)
	}

	book := normalizeBook(client, raw)
	if book.SourceId != "11" {
		t.Fatal("unexpected source id", book.SourceId)
	}
	if book.Title != "The First Story" {
		t.Fatalf("title not normalized: %q", book.Title)
	}
	if book.Author != "A. Author, B. Author" {
		t.Fatal("unexpected author", book.Author)
	}
	if book.Thumbnail != "" {
		t.Fatal("non-object cover image should yield no thumbnail", book.Thumbnail)
	}
	if book.Level != "2" {
		t.Fatal("unexpected level", book.Level)
	}
	if book.Link != "https://storyweaver.org.in/v0/stories/download-story/11-the-first-story.pdf" {
		t.Fatal("unexpected link", book.Link)
	}
}
