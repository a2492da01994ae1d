package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/text/language"

	"github.com/arjuns-ti/slides-mcp-server/internal/deck"
)

// Sentinel errors for the translate_deck tool.
var (
	ErrInvalidLanguage   = errors.New("invalid language code")
	ErrTranslateAPIError = errors.New("translation API error")
)

// TranslateDeckInput represents the input for the translate_deck tool.
type TranslateDeckInput struct {
	FileID         string `json:"file_id"`
	TargetLanguage string `json:"target_language"`           // BCP 47 tag, e.g. "fr", "pt-BR"
	SourceLanguage string `json:"source_language,omitempty"` // Optional, auto-detect if omitted
}

// TranslateDeckOutput carries the same discriminated envelope as
// get_slides_deck, with the shape and table text translated. The
// presentation itself is never modified.
type TranslateDeckOutput struct {
	Success         *bool                     `json:"success,omitempty"`
	Exists          *bool                     `json:"exists,omitempty"`
	IsSlides        bool                      `json:"is_slides"`
	Message         string                    `json:"message,omitempty"`
	TargetLanguage  string                    `json:"target_language,omitempty"`
	SourceLanguage  string                    `json:"source_language,omitempty"`
	TranslatedCount int                       `json:"translated_count,omitempty"`
	Presentation    *deck.PresentationSummary `json:"presentation,omitempty"`
	File            *deck.FileSummary         `json:"file,omitempty"`
	Slides          *[]deck.Slide             `json:"slides,omitempty"`
}

// TranslateDeck resolves a Drive file ID to a normalized deck and translates
// its text content in place in the response.
func (t *Tools) TranslateDeck(ctx context.Context, tokenSource oauth2.TokenSource, input TranslateDeckInput) (*TranslateDeckOutput, error) {
	if input.FileID == "" {
		return nil, fmt.Errorf("%w: file_id is required", ErrInvalidInput)
	}
	if input.TargetLanguage == "" {
		return nil, fmt.Errorf("%w: target_language is required (e.g. 'fr', 'es', 'ja')", ErrInvalidInput)
	}
	target, err := language.Parse(input.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("%w: unrecognized target_language %q", ErrInvalidLanguage, input.TargetLanguage)
	}
	source := language.Und
	if input.SourceLanguage != "" {
		source, err = language.Parse(input.SourceLanguage)
		if err != nil {
			return nil, fmt.Errorf("%w: unrecognized source_language %q", ErrInvalidLanguage, input.SourceLanguage)
		}
	}

	t.config.Logger.Info("translating deck",
		slog.String("file_id", input.FileID),
		slog.String("target_language", target.String()),
	)

	file, err := t.lookupFile(ctx, tokenSource, input.FileID)
	if err != nil {
		if isNotFoundError(err) {
			exists := false
			return &TranslateDeckOutput{
				Exists:  &exists,
				Message: fmt.Sprintf("File with ID '%s' not found in Google Drive", input.FileID),
			}, nil
		}
		if isForbiddenError(err) {
			return nil, fmt.Errorf("%w: file %s exists but is not accessible: %v", ErrAccessDenied, input.FileID, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrDriveAPIError, err)
	}

	if file.MimeType != deck.SlidesMimeType {
		exists := true
		return &TranslateDeckOutput{
			Exists:  &exists,
			Message: fmt.Sprintf("File exists but is not a Google Slides file (type: %s)", file.MimeType),
		}, nil
	}

	d, err := t.fetchDeck(ctx, tokenSource, input.FileID)
	if err != nil {
		return nil, err
	}

	count, err := t.translateDeckTexts(ctx, tokenSource, d, target, source)
	if err != nil {
		return nil, err
	}

	success := true
	slides := d.Slides
	if slides == nil {
		slides = []deck.Slide{}
	}
	presentation := d.Presentation
	return &TranslateDeckOutput{
		Success:         &success,
		IsSlides:        true,
		TargetLanguage:  target.String(),
		SourceLanguage:  input.SourceLanguage,
		TranslatedCount: count,
		Presentation:    &presentation,
		File:            fileSummaryFromDrive(file),
		Slides:          &slides,
	}, nil
}

// translateDeckTexts translates every non-empty shape text and table cell in
// the deck with one batched API call, writing results back in place.
func (t *Tools) translateDeckTexts(ctx context.Context, tokenSource oauth2.TokenSource, d *deck.Deck, target, source language.Tag) (int, error) {
	var targets []*string
	for i := range d.Slides {
		for j := range d.Slides[i].Elements {
			element := &d.Slides[i].Elements[j]
			switch element.Type {
			case deck.ElementShape:
				if element.Content != nil && *element.Content != "" {
					targets = append(targets, element.Content)
				}
			case deck.ElementTable:
				if element.Table == nil {
					continue
				}
				for r := range element.Table.Cells {
					for c := range element.Table.Cells[r] {
						if element.Table.Cells[r][c] != "" {
							targets = append(targets, &element.Table.Cells[r][c])
						}
					}
				}
			}
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	translateService, err := t.translateServiceFactory(ctx, tokenSource)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create translate service: %v", ErrTranslateAPIError, err)
	}

	texts := make([]string, len(targets))
	for i, ptr := range targets {
		texts[i] = *ptr
	}

	translated, err := translateService.TranslateTexts(ctx, texts, target, source)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTranslateAPIError, err)
	}
	if len(translated) != len(texts) {
		return 0, fmt.Errorf("%w: got %d translations for %d texts", ErrTranslateAPIError, len(translated), len(texts))
	}

	for i, ptr := range targets {
		*ptr = translated[i]
	}
	return len(targets), nil
}
