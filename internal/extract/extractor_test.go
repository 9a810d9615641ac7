package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-intake/internal/config"
	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/anthropic"
)

// fakeAI routes requests to canned responses: requests carrying an image get
// visionResponse, text-only requests get textResponse.
type fakeAI struct {
	textResponse   string
	visionResponse string
	err            error
	calls          int
}

func (f *fakeAI) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	text := f.textResponse
	for _, m := range req.Messages {
		if len(m.Images) > 0 {
			text = f.visionResponse
		}
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

// fakeSource serves in-memory documents keyed by ID.
type fakeSource struct {
	texts  map[string]string
	pages  map[string][]PageImage
	noText map[string]bool
}

func (f *fakeSource) Text(_ context.Context, doc model.DocumentRef) (string, error) {
	if f.noText[doc.ID] {
		return "", assertErr("no text layer")
	}
	return f.texts[doc.ID], nil
}

func (f *fakeSource) PageImages(_ context.Context, doc model.DocumentRef) ([]PageImage, error) {
	return f.pages[doc.ID], nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func testExtractor(ai anthropic.Client) *Extractor {
	return New(ai, config.ExtractConfig{
		QualityThreshold:       0.5,
		MaxConcurrentDocuments: 5,
		DefaultConfidence:      0.5,
	}, config.AnthropicConfig{
		HaikuModel:  "claude-haiku-4-5-20251001",
		SonnetModel: "claude-sonnet-4-5-20250929",
	})
}

const nativeResponse = `{
  "location": {
    "city": {"value": "Austin", "confidence": 0.95},
    "state": {"value": "TX", "confidence": 0.95},
    "zip_code": {"value": null, "confidence": 0}
  },
  "listing_meta": {
    "list_price": {"value": 450000, "confidence": 0.9}
  }
}`

const visionResponse = `Here is the extraction:
` + "```json" + `
{
  "location": {
    "city": {"value": "Austin", "confidence": 0.7}
  },
  "property": {
    "year_built": {"value": 2005, "confidence": 0.8}
  }
}
` + "```"

func TestExtractDocumentsNativeTextPath(t *testing.T) {
	ai := &fakeAI{textResponse: nativeResponse}
	e := testExtractor(ai)
	src := &fakeSource{texts: map[string]string{"doc-1": mlsSampleText}}

	res, err := e.ExtractDocuments(context.Background(), "listing-1",
		[]model.DocumentRef{{ID: "doc-1", Name: "sheet.pdf"}}, src, ModeAuto)
	require.NoError(t, err)

	assert.Empty(t, res.Warnings)
	assert.GreaterOrEqual(t, res.Quality["doc-1"], 0.5)

	require.Contains(t, res.Merged, "location.city")
	city := res.Merged["location.city"]
	assert.Equal(t, "Austin", city.Value)
	assert.Equal(t, model.SourceDocument, city.Provenance.SourceType)
	assert.Equal(t, "doc-1:page_1", city.Provenance.SourceRef)

	// Null zip_code was dropped, not recorded.
	assert.NotContains(t, res.Merged, "location.zip_code")

	// Every surviving candidate was accepted.
	for _, f := range res.Facts {
		assert.Equal(t, model.FactAccepted, f.Status)
	}
	assert.Equal(t, int64(100), res.Usage.InputTokens)
}

func TestExtractDocumentsVisionRouting(t *testing.T) {
	ai := &fakeAI{visionResponse: visionResponse}
	e := testExtractor(ai)

	// Low-entropy garbage text forces the vision path.
	src := &fakeSource{
		texts: map[string]string{"doc-1": strings.Repeat("xx ", 300)},
		pages: map[string][]PageImage{
			"doc-1": {
				{Page: 1, MediaType: "image/png", Data: []byte("img1")},
				{Page: 2, MediaType: "image/png", Data: []byte("img2")},
			},
		},
	}

	res, err := e.ExtractDocuments(context.Background(), "listing-1",
		[]model.DocumentRef{{ID: "doc-1", Name: "scan.pdf"}}, src, ModeAuto)
	require.NoError(t, err)

	require.Contains(t, res.Merged, "property.year_built")
	yb := res.Merged["property.year_built"]
	assert.Equal(t, model.SourceVision, yb.Provenance.SourceType)
	assert.Equal(t, "doc-1:page_1", yb.Provenance.SourceRef)

	// One vision call per page.
	assert.Equal(t, 2, ai.calls)
	// No quality score recorded for vision documents.
	assert.NotContains(t, res.Quality, "doc-1")
}

func TestExtractDocumentsForcedVision(t *testing.T) {
	ai := &fakeAI{visionResponse: visionResponse}
	e := testExtractor(ai)
	src := &fakeSource{
		texts: map[string]string{"doc-1": mlsSampleText},
		pages: map[string][]PageImage{
			"doc-1": {{Page: 1, MediaType: "image/jpeg", Data: []byte("img")}},
		},
	}

	res, err := e.ExtractDocuments(context.Background(), "listing-1",
		[]model.DocumentRef{{ID: "doc-1"}}, src, ModeVision)
	require.NoError(t, err)
	assert.Equal(t, model.SourceVision, res.Merged["location.city"].Provenance.SourceType)
}

func TestExtractDocumentsMergesAcrossDocuments(t *testing.T) {
	ai := &fakeAI{textResponse: nativeResponse}
	e := testExtractor(ai)
	src := &fakeSource{texts: map[string]string{
		"doc-1": mlsSampleText,
		"doc-2": mlsSampleText + " second sheet",
	}}

	res, err := e.ExtractDocuments(context.Background(), "listing-1",
		[]model.DocumentRef{{ID: "doc-1"}, {ID: "doc-2"}}, src, ModeNativeText)
	require.NoError(t, err)

	// Equal confidence: doc-1's fact wins, doc-2's is rejected.
	assert.Equal(t, "doc-1", res.Merged["location.city"].Provenance.DocumentID)
	rejected := 0
	for _, f := range res.Facts {
		if f.Status == model.FactRejected {
			rejected++
		}
	}
	assert.Equal(t, 3, rejected)
}

func TestExtractDocumentsPerDocumentFailure(t *testing.T) {
	ai := &fakeAI{err: assertErr("api down")}
	e := testExtractor(ai)
	src := &fakeSource{texts: map[string]string{"doc-1": mlsSampleText}}

	res, err := e.ExtractDocuments(context.Background(), "listing-1",
		[]model.DocumentRef{{ID: "doc-1", Name: "sheet.pdf"}}, src, ModeNativeText)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "doc-1")
	assert.Empty(t, res.Merged)
}

func TestExtractDocumentsNoDocuments(t *testing.T) {
	e := testExtractor(&fakeAI{})
	res, err := e.ExtractDocuments(context.Background(), "listing-1", nil, &fakeSource{}, ModeAuto)
	require.NoError(t, err)
	assert.Empty(t, res.Merged)
	assert.Empty(t, res.Facts)
}
