package storyweaver

import "encoding/json"

type coverImage struct {
	Sizes []struct {
		Url string `json:"url"`
	} `json:"sizes"`
}

// RawBook is one entry of the books-search response, in the shape the
// listing API reports it.
type RawBook struct {
	Id      json.Number `json:"id"`
	Slug    string      `json:"slug"`
	Title   string      `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Description string `json:"description"`
	// sometimes an object with sizes, sometimes null or a bare string,
	// so it cannot be decoded eagerly
	CoverImage json.RawMessage `json:"coverImage"`
	Language   string          `json:"language"`
	Level      json.Number     `json:"level"`
	Publisher  struct {
		Name string `json:"name"`
	} `json:"publisher"`
}

// Thumbnail returns the first cover image url, or "" when the cover-image
// field is missing or not an object.
func (b RawBook) Thumbnail() string {
	if len(b.CoverImage) == 0 {
		return ""
	}
	var cover coverImage
	err := json.Unmarshal(b.CoverImage, &cover)
	if err != nil || len(cover.Sizes) == 0 {
		return ""
	}
	return cover.Sizes[0].Url
}

type searchResponse struct {
	Data     []RawBook `json:"data"`
	Metadata struct {
		TotalPages int `json:"totalPages"`
	} `json:"metadata"`
}

// SearchPage is one page of listing results for a grouping key.
type SearchPage struct {
	Books      []RawBook
	TotalPages int
}

type filtersResponse struct {
	Data struct {
		Category struct {
			QueryValues []struct {
				Name string `json:"name"`
			} `json:"queryValues"`
		} `json:"category"`
	} `json:"data"`
}

type signInResponse struct {
	Email string `json:"email"`
}
