package tools

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/text/language"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/slides/v1"
)

// mockDriveService implements DriveService for testing.
type mockDriveService struct {
	GetFileFunc func(ctx context.Context, fileID string) (*drive.File, error)
	GetCalls    int
}

func (m *mockDriveService) GetFile(ctx context.Context, fileID string) (*drive.File, error) {
	m.GetCalls++
	if m.GetFileFunc != nil {
		return m.GetFileFunc(ctx, fileID)
	}
	return nil, errors.New("not implemented")
}

// mockSlidesService implements SlidesService for testing.
type mockSlidesService struct {
	GetPresentationFunc func(ctx context.Context, presentationID string) (*slides.Presentation, error)
	GetCalls            int
}

func (m *mockSlidesService) GetPresentation(ctx context.Context, presentationID string) (*slides.Presentation, error) {
	m.GetCalls++
	if m.GetPresentationFunc != nil {
		return m.GetPresentationFunc(ctx, presentationID)
	}
	return nil, errors.New("not implemented")
}

// mockTranslateService implements TranslateService for testing.
type mockTranslateService struct {
	TranslateTextsFunc func(ctx context.Context, texts []string, target language.Tag, source language.Tag) ([]string, error)
	Calls              int
}

func (m *mockTranslateService) TranslateTexts(ctx context.Context, texts []string, target language.Tag, source language.Tag) ([]string, error) {
	m.Calls++
	if m.TranslateTextsFunc != nil {
		return m.TranslateTextsFunc(ctx, texts, target, source)
	}
	return nil, errors.New("not implemented")
}

// mockTokenSource implements oauth2.TokenSource for testing.
type mockTokenSource struct{}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "test-token"}, nil
}

// newMockTools wires the mocks into a Tools instance without a deck cache.
func newMockTools(driveMock *mockDriveService, slidesMock *mockSlidesService, translateMock *mockTranslateService) *Tools {
	config := ToolsConfig{Logger: slog.New(slog.DiscardHandler)}
	var driveFactory DriveServiceFactory
	if driveMock != nil {
		driveFactory = func(ctx context.Context, ts oauth2.TokenSource) (DriveService, error) {
			return driveMock, nil
		}
	}
	var slidesFactory SlidesServiceFactory
	if slidesMock != nil {
		slidesFactory = func(ctx context.Context, ts oauth2.TokenSource) (SlidesService, error) {
			return slidesMock, nil
		}
	}
	var translateFactory TranslateServiceFactory
	if translateMock != nil {
		translateFactory = func(ctx context.Context, ts oauth2.TokenSource) (TranslateService, error) {
			return translateMock, nil
		}
	}
	return NewTools(config, driveFactory, slidesFactory, translateFactory, nil)
}

// testPresentation builds a small presentation with one text shape per slide.
func testPresentation(id string, slideTexts ...string) *slides.Presentation {
	pages := make([]*slides.Page, len(slideTexts))
	for i, text := range slideTexts {
		pages[i] = &slides.Page{
			ObjectId: "slide-" + string(rune('a'+i)),
			PageElements: []*slides.PageElement{
				{
					ObjectId: "shape-" + string(rune('a'+i)),
					Shape: &slides.Shape{
						Text: &slides.TextContent{
							TextElements: []*slides.TextElement{
								{TextRun: &slides.TextRun{Content: text}},
							},
						},
					},
				},
			},
		}
	}
	return &slides.Presentation{
		PresentationId: id,
		Title:          "Test Presentation",
		Locale:         "en",
		Slides:         pages,
	}
}
