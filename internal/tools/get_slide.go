package tools

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/arjuns-ti/slides-mcp-server/internal/deck"
)

// GetSlideInput represents the input for the get_slide tool.
type GetSlideInput struct {
	PresentationID string `json:"presentation_id"`
	SlideNumber    int    `json:"slide_number"` // 1-based
}

// GetSlideOutput represents the output of the get_slide tool.
type GetSlideOutput struct {
	PresentationID string     `json:"presentation_id"`
	SlideCount     int        `json:"slide_count"`
	Slide          deck.Slide `json:"slide"`
}

// GetSlide returns a single slide in the normalized element schema.
func (t *Tools) GetSlide(ctx context.Context, tokenSource oauth2.TokenSource, input GetSlideInput) (*GetSlideOutput, error) {
	if input.PresentationID == "" {
		return nil, fmt.Errorf("%w: presentation_id is required", ErrInvalidInput)
	}
	if input.SlideNumber < 1 {
		return nil, fmt.Errorf("%w: slide_number must be 1 or greater, got %d", ErrInvalidInput, input.SlideNumber)
	}

	t.config.Logger.Info("getting slide",
		slog.String("presentation_id", input.PresentationID),
		slog.Int("slide_number", input.SlideNumber),
	)

	d, err := t.fetchDeck(ctx, tokenSource, input.PresentationID)
	if err != nil {
		return nil, err
	}

	if input.SlideNumber > len(d.Slides) {
		return nil, fmt.Errorf("%w: slide_number %d is out of range, presentation has %d slides",
			ErrInvalidInput, input.SlideNumber, len(d.Slides))
	}

	return &GetSlideOutput{
		PresentationID: d.Presentation.ID,
		SlideCount:     d.Presentation.SlideCount,
		Slide:          d.Slides[input.SlideNumber-1],
	}, nil
}
