package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/arjuns-ti/slides-mcp-server/internal/tools"
)

// CredentialSource supplies per-call OAuth token sources. *auth.Manager
// satisfies it.
type CredentialSource interface {
	TokenSource(ctx context.Context) oauth2.TokenSource
}

// NewToolRegistry builds the registry of Google Slides tools backed by the
// given tool implementations and credential source.
func NewToolRegistry(t *tools.Tools, creds CredentialSource) *Registry {
	registry := NewRegistry()

	registry.Register(ToolDefinition{
		Name:        "get_slides_deck",
		Description: "Resolve a Google Drive file ID to a normalized slide deck. Returns the deck's slides with their text, tables, and images, or a structured answer when the file is missing or not a Slides file.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"file_id": {
					Type:        "string",
					Description: "The Google Drive file ID of the presentation",
				},
			},
			Required: []string{"file_id"},
		},
	}, func(ctx context.Context, arguments json.RawMessage) (any, error) {
		var input tools.GetSlidesDeckInput
		if err := unmarshalArguments(arguments, &input); err != nil {
			return nil, err
		}
		return t.GetSlidesDeck(ctx, creds.TokenSource(ctx), input)
	})

	registry.Register(ToolDefinition{
		Name:        "get_presentation_overview",
		Description: "Get a compact structural summary of a presentation: per slide, its number, leading text, and element count.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"presentation_id": {
					Type:        "string",
					Description: "The ID of the presentation",
				},
			},
			Required: []string{"presentation_id"},
		},
	}, func(ctx context.Context, arguments json.RawMessage) (any, error) {
		var input tools.GetPresentationOverviewInput
		if err := unmarshalArguments(arguments, &input); err != nil {
			return nil, err
		}
		return t.GetPresentationOverview(ctx, creds.TokenSource(ctx), input)
	})

	registry.Register(ToolDefinition{
		Name:        "get_slide",
		Description: "Get a single slide from a presentation in the normalized element schema. Slide numbers are 1-based.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"presentation_id": {
					Type:        "string",
					Description: "The ID of the presentation",
				},
				"slide_number": {
					Type:        "integer",
					Description: "The 1-based slide number to fetch",
				},
			},
			Required: []string{"presentation_id", "slide_number"},
		},
	}, func(ctx context.Context, arguments json.RawMessage) (any, error) {
		var input tools.GetSlideInput
		if err := unmarshalArguments(arguments, &input); err != nil {
			return nil, err
		}
		return t.GetSlide(ctx, creds.TokenSource(ctx), input)
	})

	registry.Register(ToolDefinition{
		Name:        "translate_deck",
		Description: "Resolve a Drive file ID to a normalized deck with its shape and table text translated to a target language. The presentation itself is never modified.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"file_id": {
					Type:        "string",
					Description: "The Google Drive file ID of the presentation",
				},
				"target_language": {
					Type:        "string",
					Description: "Target language as a BCP 47 tag, e.g. 'fr', 'pt-BR'",
				},
				"source_language": {
					Type:        "string",
					Description: "Optional source language tag. Auto-detected when omitted",
				},
			},
			Required: []string{"file_id", "target_language"},
		},
	}, func(ctx context.Context, arguments json.RawMessage) (any, error) {
		var input tools.TranslateDeckInput
		if err := unmarshalArguments(arguments, &input); err != nil {
			return nil, err
		}
		return t.TranslateDeck(ctx, creds.TokenSource(ctx), input)
	})

	return registry
}

func unmarshalArguments(arguments json.RawMessage, v any) error {
	if len(arguments) == 0 {
		arguments = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(arguments, v); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}
