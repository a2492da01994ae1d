package tools

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/arjuns-ti/slides-mcp-server/internal/deck"
)

// summaryMaxLen caps the per-slide summary text.
const summaryMaxLen = 50

// GetPresentationOverviewInput represents the input for the
// get_presentation_overview tool.
type GetPresentationOverviewInput struct {
	PresentationID string `json:"presentation_id"`
}

// SlideOverview is a one-line view of a slide.
type SlideOverview struct {
	Num      int    `json:"num"`
	Summary  string `json:"summary"`
	Elements int    `json:"elements"`
}

// GetPresentationOverviewOutput represents the output of the
// get_presentation_overview tool.
type GetPresentationOverviewOutput struct {
	PresentationID string          `json:"presentation_id"`
	Title          string          `json:"title"`
	SlideCount     int             `json:"slide_count"`
	Slides         []SlideOverview `json:"slides"`
}

// GetPresentationOverview returns a compact structural summary of a
// presentation: per slide, its number, leading text, and element count.
func (t *Tools) GetPresentationOverview(ctx context.Context, tokenSource oauth2.TokenSource, input GetPresentationOverviewInput) (*GetPresentationOverviewOutput, error) {
	if input.PresentationID == "" {
		return nil, fmt.Errorf("%w: presentation_id is required", ErrInvalidInput)
	}

	t.config.Logger.Info("getting presentation overview",
		slog.String("presentation_id", input.PresentationID),
	)

	d, err := t.fetchDeck(ctx, tokenSource, input.PresentationID)
	if err != nil {
		return nil, err
	}

	output := &GetPresentationOverviewOutput{
		PresentationID: d.Presentation.ID,
		Title:          d.Presentation.Title,
		SlideCount:     d.Presentation.SlideCount,
		Slides:         make([]SlideOverview, len(d.Slides)),
	}
	for i, slide := range d.Slides {
		output.Slides[i] = SlideOverview{
			Num:      slide.Number,
			Summary:  slideSummary(slide),
			Elements: len(slide.Elements),
		}
	}

	return output, nil
}

// slideSummary returns the slide's first non-empty text, truncated.
func slideSummary(slide deck.Slide) string {
	for _, element := range slide.Elements {
		if element.Type != deck.ElementShape || element.Content == nil {
			continue
		}
		if text := *element.Content; text != "" {
			return truncate(text, summaryMaxLen)
		}
	}
	return ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
