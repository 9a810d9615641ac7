package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-intake/internal/config"
	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/anthropic"
)

// fakeAI replies with a canned response and records the prompts it saw.
type fakeAI struct {
	response string
	err      error

	mu      sync.Mutex
	prompts []string
}

func (f *fakeAI) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.mu.Lock()
	for _, m := range req.Messages {
		f.prompts = append(f.prompts, m.Content)
	}
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.response}},
		Usage:   anthropic.TokenUsage{InputTokens: 50, OutputTokens: 20},
	}, nil
}

type fakeImageSource struct {
	err error
}

func (f *fakeImageSource) ImageData(_ context.Context, _ model.Image) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("jpeg-bytes"), "image/jpeg", nil
}

func testAnalyzer(ai anthropic.Client) *Analyzer {
	return NewAnalyzer(ai, config.EnrichConfig{MaxConcurrentImages: 4}, config.AnthropicConfig{
		HaikuModel: "claude-haiku-4-5-20251001",
	})
}

func TestAnalyzeImageFilenamePrecedence(t *testing.T) {
	ai := &fakeAI{response: `{"description": "A sun-drenched kitchen with granite counters."}`}
	a := testAnalyzer(ai)

	got, usage, err := a.AnalyzeImage(context.Background(), "kitchen_01.jpg", "image/jpeg", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "kitchen", got.RoomLabel)
	assert.Equal(t, "interior", got.PhotoType)
	assert.Equal(t, "A sun-drenched kitchen with granite counters.", got.Description)
	assert.False(t, got.IsPrimaryCandidate)
	assert.Equal(t, int64(50), usage.InputTokens)

	// The caption-only prompt names the room; the label prompt is skipped.
	require.Len(t, ai.prompts, 1)
	assert.Contains(t, ai.prompts[0], "Kitchen")
	assert.NotContains(t, ai.prompts[0], "Choose ONE label")
}

func TestAnalyzeImageVisionFallback(t *testing.T) {
	ai := &fakeAI{response: `{"room_label": "front_exterior", "photo_type": "exterior", "description": "Pristine curb appeal."}`}
	a := testAnalyzer(ai)

	got, _, err := a.AnalyzeImage(context.Background(), "IMG_1234.jpg", "image/jpeg", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "front_exterior", got.RoomLabel)
	assert.Equal(t, "exterior", got.PhotoType)
	assert.True(t, got.IsPrimaryCandidate)
}

func TestAnalyzeImageMalformedResponse(t *testing.T) {
	ai := &fakeAI{response: "I see a lovely house but cannot answer in JSON."}
	a := testAnalyzer(ai)

	got, _, err := a.AnalyzeImage(context.Background(), "IMG_1234.jpg", "image/jpeg", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "other", got.RoomLabel)
	assert.Equal(t, "other", got.PhotoType)
	assert.Empty(t, got.Description)
}

func TestAnalyzeImageInvalidLabelNormalized(t *testing.T) {
	ai := &fakeAI{response: `{"room_label": "swimming_pool", "photo_type": "exterior", "description": "x"}`}
	a := testAnalyzer(ai)

	got, _, err := a.AnalyzeImage(context.Background(), "IMG_1234.jpg", "image/jpeg", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "other", got.RoomLabel)
	assert.Equal(t, "other", got.PhotoType)
}

func TestAnnotateAll(t *testing.T) {
	ai := &fakeAI{response: `{"room_label": "living_room", "photo_type": "interior", "description": "Bright open living space."}`}
	a := testAnalyzer(ai)

	images := []*model.Image{
		{ID: "img-1", Filename: "IMG_0001.jpg", UploadIndex: 0},
		{ID: "img-2", Filename: "IMG_0002.jpg", UploadIndex: 1},
	}
	res := a.AnnotateAll(context.Background(), images, &fakeImageSource{})

	assert.Equal(t, 2, res.Annotated)
	assert.Empty(t, res.Warnings)
	for _, img := range images {
		require.NotNil(t, img.AISuggestedLabel)
		assert.Equal(t, "living_room", *img.AISuggestedLabel)
		assert.Equal(t, "interior", *img.PhotoType)
		assert.Equal(t, "Bright open living space.", *img.AISuggestedDescription)
		assert.Nil(t, img.FinalLabel)
	}
	assert.Equal(t, int64(100), res.Usage.InputTokens)
}

func TestAnnotateAllFailureDefaults(t *testing.T) {
	ai := &fakeAI{err: errors.New("api down")}
	a := testAnalyzer(ai)

	images := []*model.Image{{ID: "img-1", Filename: "IMG_0001.jpg"}}
	res := a.AnnotateAll(context.Background(), images, &fakeImageSource{})

	assert.Zero(t, res.Annotated)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "img-1")
	assert.Equal(t, "other", *images[0].AISuggestedLabel)
	assert.Empty(t, *images[0].AISuggestedDescription)
}

func TestAnnotateAllKeepsFilenameLabelOnCaptionFailure(t *testing.T) {
	ai := &fakeAI{err: errors.New("api down")}
	a := testAnalyzer(ai)

	images := []*model.Image{{ID: "img-1", Filename: "kitchen_2.jpg"}}
	res := a.AnnotateAll(context.Background(), images, &fakeImageSource{})

	// The room is known from the filename; only the caption is lost.
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "kitchen", *images[0].AISuggestedLabel)
	assert.Equal(t, "kitchen", images[0].RoomLabel())
	assert.Equal(t, "interior", *images[0].PhotoType)
	assert.Empty(t, *images[0].AISuggestedDescription)
}

func TestAnnotateAllSourceFailure(t *testing.T) {
	a := testAnalyzer(&fakeAI{})

	images := []*model.Image{{ID: "img-1", Filename: "kitchen.jpg"}}
	res := a.AnnotateAll(context.Background(), images, &fakeImageSource{err: errors.New("blob missing")})

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "blob missing")
	assert.Equal(t, "other", *images[0].AISuggestedLabel)
}
