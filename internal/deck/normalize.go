package deck

import (
	"strings"

	"golang.org/x/text/language"
	"google.golang.org/api/slides/v1"
)

// Normalize flattens a raw presentation document into a Deck. It performs no
// I/O and never fails: every page becomes exactly one Slide numbered by
// position, every page element becomes exactly one Element, and anything the
// classification does not recognize is kept as an unknown element rather
// than dropped. A nil presentation yields an empty deck.
func Normalize(presentation *slides.Presentation) *Deck {
	if presentation == nil {
		return &Deck{Slides: []Slide{}}
	}

	d := &Deck{
		Presentation: PresentationSummary{
			ID:         presentation.PresentationId,
			Title:      presentation.Title,
			Locale:     normalizeLocale(presentation.Locale),
			SlideCount: len(presentation.Slides),
			RevisionID: presentation.RevisionId,
		},
		Slides: make([]Slide, 0, len(presentation.Slides)),
	}

	for i, page := range presentation.Slides {
		slide := Slide{
			Number:   i + 1,
			Elements: []Element{},
		}
		if page != nil {
			slide.ObjectID = page.ObjectId
			for _, pe := range page.PageElements {
				slide.Elements = append(slide.Elements, classifyElement(pe))
			}
		}
		d.Slides = append(d.Slides, slide)
	}

	return d
}

// classifyElement maps a page element onto the closed variant set. The
// mapping is total: element kinds the model does not represent (lines,
// groups, word art, sheets charts, future API additions) fall through to
// unknown.
func classifyElement(pe *slides.PageElement) Element {
	if pe == nil {
		return Element{Type: ElementUnknown}
	}

	el := Element{ObjectID: pe.ObjectId}

	switch {
	case pe.Shape != nil:
		el.Type = ElementShape
		content := ExtractText(pe.Shape.Text)
		el.Content = &content
	case pe.Image != nil:
		el.Type = ElementImage
		url := pe.Image.ContentUrl
		el.URL = &url
	case pe.Video != nil:
		el.Type = ElementVideo
		url := pe.Video.Url
		el.URL = &url
	case pe.Table != nil:
		el.Type = ElementTable
		el.Table = extractTable(pe.Table)
	default:
		el.Type = ElementUnknown
	}

	return el
}

// ExtractText concatenates all text runs of a text body in reading order.
// Paragraph boundaries arrive as trailing newlines on the runs themselves;
// the final trailing newline is trimmed so a single-paragraph shape yields
// its bare text. Empty or missing text yields "".
func ExtractText(text *slides.TextContent) string {
	if text == nil || len(text.TextElements) == 0 {
		return ""
	}

	var b strings.Builder
	for _, te := range text.TextElements {
		if te == nil || te.TextRun == nil {
			continue
		}
		b.WriteString(te.TextRun.Content)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// extractTable builds the cell-text grid for a table element. Ragged or
// partially populated rows are tolerated; missing cells yield "".
func extractTable(table *slides.Table) *TableGrid {
	if table == nil {
		return &TableGrid{Cells: [][]string{}}
	}

	grid := &TableGrid{
		Rows:    int(table.Rows),
		Columns: int(table.Columns),
		Cells:   make([][]string, 0, len(table.TableRows)),
	}
	if grid.Rows == 0 {
		grid.Rows = len(table.TableRows)
	}

	for _, row := range table.TableRows {
		if row == nil {
			grid.Cells = append(grid.Cells, []string{})
			continue
		}
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			if cell == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, ExtractText(cell.Text))
		}
		grid.Cells = append(grid.Cells, cells)
		if grid.Columns == 0 && len(cells) > grid.Columns {
			grid.Columns = len(cells)
		}
	}

	return grid
}

// normalizeLocale canonicalizes a BCP 47 locale tag. The raw value is kept
// when it does not parse; the upstream document format is externally
// versioned and a bad locale must not break normalization.
func normalizeLocale(locale string) string {
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return locale
	}
	return tag.String()
}
