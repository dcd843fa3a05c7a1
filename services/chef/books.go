package chef

import (
	"strings"

	"storyweaver-chef/lib/htmlutil"
	"storyweaver-chef/lib/scrapers/storyweaver"
)

// Book is the fixed-shape descriptor every raw listing entry is normalized
// into. Never mutated after creation.
type Book struct {
	SourceId    string
	Slug        string
	Title       string
	Author      string
	Description string
	Thumbnail   string
	Language    string
	Level       string
	Publisher   string
	Link        string
}

func normalizeBook(client *storyweaver.Client, raw storyweaver.RawBook) Book {
	authors := make([]string, len(raw.Authors))
	for i, a := range raw.Authors {
		authors[i] = htmlutil.NormalizeText(a.Name)
	}

	return Book{
		SourceId:    raw.Id.String(),
		Slug:        raw.Slug,
		Title:       htmlutil.NormalizeText(raw.Title),
		Author:      strings.Join(authors, ", "),
		Description: raw.Description,
		Thumbnail:   raw.Thumbnail(),
		Language:    raw.Language,
		Level:       raw.Level.String(),
		Publisher:   raw.Publisher.Name,
		Link:        client.DownloadURL(raw.Slug),
	}
}
