package catalog

import (
	"fmt"
	"strings"
)

// Item is one piece of gated media.
type Item struct {
	ID          int64
	Title       string
	Year        int
	Genre       string
	Rating      float64
	Description string
	Code        string
	FileRef     string
}

// Caption is the text shown next to the media file.
func (i Item) Caption() string {
	var b strings.Builder
	b.WriteString(i.Title)
	if i.Year > 0 {
		fmt.Fprintf(&b, " (%d)", i.Year)
	}
	if i.Genre != "" {
		fmt.Fprintf(&b, "\nGenre: %s", i.Genre)
	}
	if i.Rating > 0 {
		fmt.Fprintf(&b, "\nRating: %.1f", i.Rating)
	}
	if i.Description != "" {
		fmt.Fprintf(&b, "\n\n%s", i.Description)
	}
	if i.Code != "" {
		fmt.Fprintf(&b, "\nCode: %s", i.Code)
	}
	return b.String()
}

// Title is the projection used for fuzzy matching.
type Title struct {
	ID    int64
	Title string
}
