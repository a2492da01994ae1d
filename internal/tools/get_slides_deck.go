package tools

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"

	"github.com/arjuns-ti/slides-mcp-server/internal/deck"
)

// GetSlidesDeckInput represents the input for the get_slides_deck tool.
type GetSlidesDeckInput struct {
	FileID string `json:"file_id"`
}

// GetSlidesDeckOutput is the result envelope for get_slides_deck. Exactly
// one shape is populated per call:
//   - found and is Slides: success, is_slides, presentation, file, slides
//   - found, wrong type:   exists=true, is_slides=false, message
//   - not found:           exists=false, is_slides=false, message
//
// Fields outside the resolved shape stay absent in the JSON encoding, never
// null placeholders. Failures (auth, transport) are returned as Go errors
// and mapped to the {success:false, error} shape by the transport layer.
type GetSlidesDeckOutput struct {
	Success      *bool                     `json:"success,omitempty"`
	Exists       *bool                     `json:"exists,omitempty"`
	IsSlides     bool                      `json:"is_slides"`
	Message      string                    `json:"message,omitempty"`
	Presentation *deck.PresentationSummary `json:"presentation,omitempty"`
	File         *deck.FileSummary         `json:"file,omitempty"`
	Slides       *[]deck.Slide             `json:"slides,omitempty"`
}

func deckFoundOutput(d *deck.Deck, file *deck.FileSummary) *GetSlidesDeckOutput {
	success := true
	slides := d.Slides
	if slides == nil {
		slides = []deck.Slide{}
	}
	presentation := d.Presentation
	return &GetSlidesDeckOutput{
		Success:      &success,
		IsSlides:     true,
		Presentation: &presentation,
		File:         file,
		Slides:       &slides,
	}
}

func notSlidesOutput(mimeType string) *GetSlidesDeckOutput {
	exists := true
	return &GetSlidesDeckOutput{
		Exists:   &exists,
		IsSlides: false,
		Message:  fmt.Sprintf("File exists but is not a Google Slides file (type: %s)", mimeType),
	}
}

func notFoundOutput(fileID string) *GetSlidesDeckOutput {
	exists := false
	return &GetSlidesDeckOutput{
		Exists:   &exists,
		IsSlides: false,
		Message:  fmt.Sprintf("File with ID '%s' not found in Google Drive", fileID),
	}
}

// fileSummaryFromDrive maps Drive file metadata into the output schema.
func fileSummaryFromDrive(file *drive.File) *deck.FileSummary {
	return &deck.FileSummary{
		ID:           file.Id,
		Name:         file.Name,
		MimeType:     file.MimeType,
		CreatedTime:  file.CreatedTime,
		ModifiedTime: file.ModifiedTime,
		WebViewLink:  file.WebViewLink,
	}
}

// GetSlidesDeck resolves a Drive file ID to a normalized deck. The Drive
// lookup always runs fresh; the Slides fetch is skipped when the cached deck
// matches the file's current modification time.
func (t *Tools) GetSlidesDeck(ctx context.Context, tokenSource oauth2.TokenSource, input GetSlidesDeckInput) (*GetSlidesDeckOutput, error) {
	if input.FileID == "" {
		return nil, fmt.Errorf("%w: file_id is required", ErrInvalidInput)
	}

	t.config.Logger.Info("getting slides deck",
		slog.String("file_id", input.FileID),
	)

	file, err := t.lookupFile(ctx, tokenSource, input.FileID)
	if err != nil {
		if isNotFoundError(err) {
			t.config.Logger.Info("file not found",
				slog.String("file_id", input.FileID),
			)
			return notFoundOutput(input.FileID), nil
		}
		if isForbiddenError(err) {
			return nil, fmt.Errorf("%w: file %s exists but is not accessible: %v", ErrAccessDenied, input.FileID, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrDriveAPIError, err)
	}

	if file.MimeType != deck.SlidesMimeType {
		t.config.Logger.Info("file is not a presentation",
			slog.String("file_id", input.FileID),
			slog.String("mime_type", file.MimeType),
		)
		return notSlidesOutput(file.MimeType), nil
	}

	summary := fileSummaryFromDrive(file)

	if t.deckCache != nil {
		if cached, ok := t.deckCache.Get(input.FileID, file.ModifiedTime); ok {
			t.config.Logger.Debug("serving deck from cache",
				slog.String("file_id", input.FileID),
			)
			return deckFoundOutput(cached, summary), nil
		}
	}

	d, err := t.fetchDeck(ctx, tokenSource, input.FileID)
	if err != nil {
		return nil, err
	}

	if t.deckCache != nil {
		t.deckCache.Set(input.FileID, file.ModifiedTime, d)
	}

	t.config.Logger.Info("deck loaded",
		slog.String("file_id", input.FileID),
		slog.String("title", d.Presentation.Title),
		slog.Int("slide_count", d.Presentation.SlideCount),
	)

	return deckFoundOutput(d, summary), nil
}

// lookupFile fetches minimal Drive metadata for the file.
func (t *Tools) lookupFile(ctx context.Context, tokenSource oauth2.TokenSource, fileID string) (*drive.File, error) {
	driveService, err := t.driveServiceFactory(ctx, tokenSource)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create drive service: %v", ErrDriveAPIError, err)
	}
	return driveService.GetFile(ctx, fileID)
}

// fetchDeck retrieves the raw presentation and normalizes it. Callers have
// already confirmed the file is a Slides presentation.
func (t *Tools) fetchDeck(ctx context.Context, tokenSource oauth2.TokenSource, presentationID string) (*deck.Deck, error) {
	slidesService, err := t.slidesServiceFactory(ctx, tokenSource)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create slides service: %v", ErrSlidesAPIError, err)
	}

	presentation, err := slidesService.GetPresentation(ctx, presentationID)
	if err != nil {
		if isForbiddenError(err) {
			return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSlidesAPIError, err)
	}

	return deck.Normalize(presentation), nil
}
