package extract

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/anthropic"
)

// maxNativeTextChars caps the document text included in a prompt.
const maxNativeTextChars = 60000

const nativeTextPrompt = `Extract structured real estate listing information from the following document text.

Rules:
- Only extract information that is clearly present in the text.
- Return null for fields not present.
- Return a single JSON object matching the schema.

Schema:
%s

Document text:
%s`

// extractNativeText runs LLM extraction over the document's text layer.
func (e *Extractor) extractNativeText(ctx context.Context, listingID string, doc model.DocumentRef, docIndex int, text string) ([]model.FieldFact, anthropic.TokenUsage, error) {
	if len(text) > maxNativeTextChars {
		text = text[:maxNativeTextChars]
	}

	resp, err := e.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.models.SonnetModel,
		MaxTokens: 8192,
		System:    anthropic.BuildCachedSystemBlocks(extractionSystem),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(nativeTextPrompt, schemaBlock(), text)},
		},
	})
	if err != nil {
		return nil, anthropic.TokenUsage{}, eris.Wrap(err, "extract: native text message")
	}

	candidates, err := parseExtraction(resp.Text(), e.cfg.DefaultConfidence)
	if err != nil {
		return nil, resp.Usage, eris.Wrap(err, "extract: parse native text response")
	}

	facts := make([]model.FieldFact, 0, len(candidates))
	for _, c := range candidates {
		facts = append(facts, model.FieldFact{
			ListingID:     listingID,
			CanonicalPath: c.Path,
			Value:         c.Value,
			Provenance: model.Provenance{
				SourceType: model.SourceDocument,
				SourceRef:  model.SourceRef(doc.ID, 1),
				DocumentID: doc.ID,
				PageNumber: 1,
				Confidence: c.Confidence,
			},
			Status:        model.FactProposed,
			DocumentIndex: docIndex,
		})
	}
	return facts, resp.Usage, nil
}
