// Package tools implements the MCP tools for reading Google Slides decks.
package tools

import (
	"context"
	"log/slog"

	"cloud.google.com/go/translate"
	"golang.org/x/oauth2"
	"golang.org/x/text/language"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/slides/v1"

	"github.com/arjuns-ti/slides-mcp-server/internal/cache"
)

// DriveService abstracts the Google Drive API for testing.
type DriveService interface {
	GetFile(ctx context.Context, fileID string) (*drive.File, error)
}

// DriveServiceFactory creates a Drive service from a token source.
type DriveServiceFactory func(ctx context.Context, tokenSource oauth2.TokenSource) (DriveService, error)

// fileMetadataFields is the minimal field set fetched per lookup.
const fileMetadataFields = "id,name,mimeType,createdTime,modifiedTime,webViewLink"

type realDriveService struct {
	service *drive.Service
}

func (s *realDriveService) GetFile(ctx context.Context, fileID string) (*drive.File, error) {
	return s.service.Files.Get(fileID).
		Fields(fileMetadataFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

// NewRealDriveServiceFactory returns a factory that creates real Drive services.
func NewRealDriveServiceFactory() DriveServiceFactory {
	return func(ctx context.Context, tokenSource oauth2.TokenSource) (DriveService, error) {
		service, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
		if err != nil {
			return nil, err
		}
		return &realDriveService{service: service}, nil
	}
}

// SlidesService abstracts the Google Slides API for testing.
type SlidesService interface {
	GetPresentation(ctx context.Context, presentationID string) (*slides.Presentation, error)
}

// SlidesServiceFactory creates a Slides service from a token source.
type SlidesServiceFactory func(ctx context.Context, tokenSource oauth2.TokenSource) (SlidesService, error)

type realSlidesService struct {
	service *slides.Service
}

func (s *realSlidesService) GetPresentation(ctx context.Context, presentationID string) (*slides.Presentation, error) {
	return s.service.Presentations.Get(presentationID).Context(ctx).Do()
}

// NewRealSlidesServiceFactory returns a factory that creates real Slides services.
func NewRealSlidesServiceFactory() SlidesServiceFactory {
	return func(ctx context.Context, tokenSource oauth2.TokenSource) (SlidesService, error) {
		service, err := slides.NewService(ctx, option.WithTokenSource(tokenSource))
		if err != nil {
			return nil, err
		}
		return &realSlidesService{service: service}, nil
	}
}

// TranslateService abstracts the Cloud Translation API for testing.
type TranslateService interface {
	TranslateTexts(ctx context.Context, texts []string, target language.Tag, source language.Tag) ([]string, error)
}

// TranslateServiceFactory creates a Translate service from a token source.
type TranslateServiceFactory func(ctx context.Context, tokenSource oauth2.TokenSource) (TranslateService, error)

type realTranslateService struct {
	client *translate.Client
}

func (s *realTranslateService) TranslateTexts(ctx context.Context, texts []string, target language.Tag, source language.Tag) ([]string, error) {
	opts := &translate.Options{Format: translate.Text}
	if source != language.Und {
		opts.Source = source
	}
	translations, err := s.client.Translate(ctx, texts, target, opts)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(translations))
	for i, tr := range translations {
		out[i] = tr.Text
	}
	return out, nil
}

// NewRealTranslateServiceFactory returns a factory that creates real Translate services.
func NewRealTranslateServiceFactory() TranslateServiceFactory {
	return func(ctx context.Context, tokenSource oauth2.TokenSource) (TranslateService, error) {
		client, err := translate.NewClient(ctx, option.WithTokenSource(tokenSource))
		if err != nil {
			return nil, err
		}
		return &realTranslateService{client: client}, nil
	}
}

// ToolsConfig holds configuration for the tools.
type ToolsConfig struct {
	Logger *slog.Logger
}

// DefaultToolsConfig returns default configuration.
func DefaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		Logger: slog.Default(),
	}
}

// Tools provides the MCP tool implementations.
type Tools struct {
	config                  ToolsConfig
	driveServiceFactory     DriveServiceFactory
	slidesServiceFactory    SlidesServiceFactory
	translateServiceFactory TranslateServiceFactory
	deckCache               *cache.DeckCache
}

// NewTools creates a new Tools instance. A nil factory selects the real
// Google API implementation; a nil deckCache disables deck caching.
func NewTools(config ToolsConfig, driveFactory DriveServiceFactory, slidesFactory SlidesServiceFactory, translateFactory TranslateServiceFactory, deckCache *cache.DeckCache) *Tools {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if driveFactory == nil {
		driveFactory = NewRealDriveServiceFactory()
	}
	if slidesFactory == nil {
		slidesFactory = NewRealSlidesServiceFactory()
	}
	if translateFactory == nil {
		translateFactory = NewRealTranslateServiceFactory()
	}

	return &Tools{
		config:                  config,
		driveServiceFactory:     driveFactory,
		slidesServiceFactory:    slidesFactory,
		translateServiceFactory: translateFactory,
		deckCache:               deckCache,
	}
}
