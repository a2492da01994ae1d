// Package deck transforms raw Google Slides presentation documents into a
// stable, tool-friendly deck model.
package deck

// SlidesMimeType is the Drive MIME type designating a Google Slides presentation.
const SlidesMimeType = "application/vnd.google-apps.presentation"

// ElementType tags the closed set of element variants a slide can carry.
type ElementType string

const (
	ElementShape   ElementType = "shape"
	ElementImage   ElementType = "image"
	ElementVideo   ElementType = "video"
	ElementTable   ElementType = "table"
	ElementUnknown ElementType = "unknown"
)

// FileSummary holds minimal Drive metadata for a file.
type FileSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mime_type"`
	CreatedTime  string `json:"created_time,omitempty"`
	ModifiedTime string `json:"modified_time,omitempty"`
	WebViewLink  string `json:"web_view_link,omitempty"`
}

// PresentationSummary holds top-level presentation metadata.
type PresentationSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Locale     string `json:"locale,omitempty"`
	SlideCount int    `json:"slide_count"`
	RevisionID string `json:"revision_id,omitempty"`
}

// TableGrid is the cell text of a table element, rows in document order.
type TableGrid struct {
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Cells   [][]string `json:"cells"`
}

// Element is one visual object on a slide. Exactly one variant payload is
// set, matched to Type; shapes always carry Content (possibly empty),
// images and videos always carry URL (possibly empty), tables always carry
// a grid, and unknown elements carry only the type tag.
type Element struct {
	ObjectID string      `json:"object_id"`
	Type     ElementType `json:"type"`
	Content  *string     `json:"content,omitempty"`
	URL      *string     `json:"url,omitempty"`
	Table    *TableGrid  `json:"table,omitempty"`
}

// Slide is one page of the deck. Number is 1-based and follows document
// order, not any identifier embedded in the page.
type Slide struct {
	Number   int       `json:"number"`
	ObjectID string    `json:"object_id"`
	Elements []Element `json:"elements"`
}

// Deck is the normalized representation of a presentation.
type Deck struct {
	Presentation PresentationSummary `json:"presentation"`
	Slides       []Slide             `json:"slides"`
}
