package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/slides/v1"

	"github.com/arjuns-ti/slides-mcp-server/internal/cache"
	"github.com/arjuns-ti/slides-mcp-server/internal/deck"
)

func slidesFile(id, modifiedTime string) *drive.File {
	return &drive.File{
		Id:           id,
		Name:         "Quarterly Review",
		MimeType:     deck.SlidesMimeType,
		CreatedTime:  "2026-01-01T00:00:00.000Z",
		ModifiedTime: modifiedTime,
		WebViewLink:  "https://docs.google.com/presentation/d/" + id,
	}
}

func TestGetSlidesDeck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		input       GetSlidesDeckInput
		setupMocks  func(*mockDriveService, *mockSlidesService)
		expectedErr error
		validate    func(*testing.T, *GetSlidesDeckOutput)
	}{
		{
			name:  "Success - Slides file with three pages",
			input: GetSlidesDeckInput{FileID: "Z"},
			setupMocks: func(d *mockDriveService, s *mockSlidesService) {
				d.GetFileFunc = func(ctx context.Context, fileID string) (*drive.File, error) {
					assert.Equal(t, "Z", fileID)
					return slidesFile("Z", "2026-02-01T00:00:00.000Z"), nil
				}
				s.GetPresentationFunc = func(ctx context.Context, id string) (*slides.Presentation, error) {
					return testPresentation("Z", "Intro", "Body", "Summary"), nil
				}
			},
			validate: func(t *testing.T, out *GetSlidesDeckOutput) {
				require.NotNil(t, out.Success)
				assert.True(t, *out.Success)
				assert.True(t, out.IsSlides)
				assert.Nil(t, out.Exists)
				assert.Empty(t, out.Message)

				require.NotNil(t, out.Presentation)
				assert.Equal(t, 3, out.Presentation.SlideCount)
				require.NotNil(t, out.File)
				assert.Equal(t, "Quarterly Review", out.File.Name)

				require.NotNil(t, out.Slides)
				require.Len(t, *out.Slides, 3)
				for i, slide := range *out.Slides {
					assert.Equal(t, i+1, slide.Number)
					require.Len(t, slide.Elements, 1)
					assert.Equal(t, deck.ElementShape, slide.Elements[0].Type)
					require.NotNil(t, slide.Elements[0].Content)
					assert.NotEmpty(t, *slide.Elements[0].Content)
				}
			},
		},
		{
			name:  "Not found",
			input: GetSlidesDeckInput{FileID: "X"},
			setupMocks: func(d *mockDriveService, s *mockSlidesService) {
				d.GetFileFunc = func(ctx context.Context, fileID string) (*drive.File, error) {
					return nil, &googleapi.Error{Code: http.StatusNotFound, Message: "File not found"}
				}
			},
			validate: func(t *testing.T, out *GetSlidesDeckOutput) {
				assert.Nil(t, out.Success)
				require.NotNil(t, out.Exists)
				assert.False(t, *out.Exists)
				assert.False(t, out.IsSlides)
				assert.Equal(t, "File with ID 'X' not found in Google Drive", out.Message)
				assert.Nil(t, out.Presentation)
				assert.Nil(t, out.File)
				assert.Nil(t, out.Slides)
			},
		},
		{
			name:  "Exists but not Slides",
			input: GetSlidesDeckInput{FileID: "Y"},
			setupMocks: func(d *mockDriveService, s *mockSlidesService) {
				d.GetFileFunc = func(ctx context.Context, fileID string) (*drive.File, error) {
					return &drive.File{Id: "Y", Name: "report.pdf", MimeType: "application/pdf"}, nil
				}
			},
			validate: func(t *testing.T, out *GetSlidesDeckOutput) {
				assert.Nil(t, out.Success)
				require.NotNil(t, out.Exists)
				assert.True(t, *out.Exists)
				assert.False(t, out.IsSlides)
				assert.Equal(t, "File exists but is not a Google Slides file (type: application/pdf)", out.Message)
				assert.Nil(t, out.Slides)
			},
		},
		{
			name:  "Exists but inaccessible",
			input: GetSlidesDeckInput{FileID: "locked"},
			setupMocks: func(d *mockDriveService, s *mockSlidesService) {
				d.GetFileFunc = func(ctx context.Context, fileID string) (*drive.File, error) {
					return nil, &googleapi.Error{Code: http.StatusForbidden, Message: "insufficient permissions"}
				}
			},
			expectedErr: ErrAccessDenied,
		},
		{
			name:  "Drive transport failure",
			input: GetSlidesDeckInput{FileID: "flaky"},
			setupMocks: func(d *mockDriveService, s *mockSlidesService) {
				d.GetFileFunc = func(ctx context.Context, fileID string) (*drive.File, error) {
					return nil, errors.New("connection reset")
				}
			},
			expectedErr: ErrDriveAPIError,
		},
		{
			name:  "Slides fetch failure",
			input: GetSlidesDeckInput{FileID: "Z"},
			setupMocks: func(d *mockDriveService, s *mockSlidesService) {
				d.GetFileFunc = func(ctx context.Context, fileID string) (*drive.File, error) {
					return slidesFile("Z", "t"), nil
				}
				s.GetPresentationFunc = func(ctx context.Context, id string) (*slides.Presentation, error) {
					return nil, &googleapi.Error{Code: http.StatusInternalServerError, Message: "backend error"}
				}
			},
			expectedErr: ErrSlidesAPIError,
		},
		{
			name:        "Missing file_id",
			input:       GetSlidesDeckInput{},
			setupMocks:  func(d *mockDriveService, s *mockSlidesService) {},
			expectedErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driveMock := &mockDriveService{}
			slidesMock := &mockSlidesService{}
			tt.setupMocks(driveMock, slidesMock)

			tools := newMockTools(driveMock, slidesMock, nil)
			out, err := tools.GetSlidesDeck(ctx, &mockTokenSource{}, tt.input)

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			tt.validate(t, out)
		})
	}
}

func TestGetSlidesDeckEmptyDeckSerializesSlides(t *testing.T) {
	driveMock := &mockDriveService{
		GetFileFunc: func(ctx context.Context, fileID string) (*drive.File, error) {
			return slidesFile("empty", "t"), nil
		},
	}
	slidesMock := &mockSlidesService{
		GetPresentationFunc: func(ctx context.Context, id string) (*slides.Presentation, error) {
			return &slides.Presentation{PresentationId: "empty", Title: "Empty"}, nil
		},
	}

	tools := newMockTools(driveMock, slidesMock, nil)
	out, err := tools.GetSlidesDeck(context.Background(), &mockTokenSource{}, GetSlidesDeckInput{FileID: "empty"})
	require.NoError(t, err)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"slides":[]`)
	assert.NotContains(t, string(data), "null")
}

func TestGetSlidesDeckCache(t *testing.T) {
	modified := "2026-02-01T00:00:00.000Z"
	driveMock := &mockDriveService{
		GetFileFunc: func(ctx context.Context, fileID string) (*drive.File, error) {
			return slidesFile("Z", modified), nil
		},
	}
	slidesMock := &mockSlidesService{
		GetPresentationFunc: func(ctx context.Context, id string) (*slides.Presentation, error) {
			return testPresentation("Z", "Intro"), nil
		},
	}

	deckCache := cache.NewDeckCache(cache.DeckCacheConfig{
		MaxEntries: 10,
		TTL:        time.Minute,
		Logger:     slog.New(slog.DiscardHandler),
	})
	config := ToolsConfig{Logger: slog.New(slog.DiscardHandler)}
	tools := NewTools(config,
		func(ctx context.Context, ts oauth2.TokenSource) (DriveService, error) { return driveMock, nil },
		func(ctx context.Context, ts oauth2.TokenSource) (SlidesService, error) { return slidesMock, nil },
		nil, deckCache)

	input := GetSlidesDeckInput{FileID: "Z"}
	ctx := context.Background()

	_, err := tools.GetSlidesDeck(ctx, &mockTokenSource{}, input)
	require.NoError(t, err)
	out, err := tools.GetSlidesDeck(ctx, &mockTokenSource{}, input)
	require.NoError(t, err)

	// The Drive lookup always runs fresh; the unchanged document skips the
	// second Slides fetch.
	assert.Equal(t, 2, driveMock.GetCalls)
	assert.Equal(t, 1, slidesMock.GetCalls)
	require.NotNil(t, out.Success)
	assert.True(t, *out.Success)

	// A modified document invalidates the cached deck.
	modified = "2026-02-02T00:00:00.000Z"
	_, err = tools.GetSlidesDeck(ctx, &mockTokenSource{}, input)
	require.NoError(t, err)
	assert.Equal(t, 2, slidesMock.GetCalls)
}
