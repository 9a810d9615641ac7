package extract

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/anthropic"
)

const visionPrompt = `Extract structured MLS listing information from this image of a real estate document (scanned PDF page, screenshot, or photo of an MLS sheet, listing agreement, or disclosure).

Rules:
- Only extract values that are clearly visible and legible in the image.
- Do not perform OCR-style full text reconstruction.
- If the page is irrelevant, return an empty JSON object {}.
- Return a single JSON object matching the schema.

Schema:
%s`

// extractVision runs per-page vision extraction over rendered document pages.
// A failed page is skipped with a warning; the document fails only when no
// page could be processed.
func (e *Extractor) extractVision(ctx context.Context, listingID string, doc model.DocumentRef, docIndex int, src Source) ([]model.FieldFact, anthropic.TokenUsage, []string, error) {
	var usage anthropic.TokenUsage

	pages, err := src.PageImages(ctx, doc)
	if err != nil {
		return nil, usage, nil, eris.Wrap(err, "extract: render pages")
	}
	if len(pages) == 0 {
		return nil, usage, nil, eris.Errorf("extract: document %s has no renderable pages", doc.ID)
	}

	prompt := fmt.Sprintf(visionPrompt, schemaBlock())
	system := anthropic.BuildCachedSystemBlocks(extractionSystem)

	var facts []model.FieldFact
	var warnings []string
	processed := 0
	for _, page := range pages {
		resp, err := e.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.models.SonnetModel,
			MaxTokens: 8192,
			System:    system,
			Messages: []anthropic.Message{
				{
					Role:    "user",
					Content: prompt,
					Images:  []anthropic.Image{{MediaType: page.MediaType, Data: page.Data}},
				},
			},
		})
		if err != nil {
			zap.L().Warn("extract: vision page failed",
				zap.String("document_id", doc.ID),
				zap.Int("page", page.Page),
				zap.Error(err),
			)
			warnings = append(warnings, fmt.Sprintf("document %s page %d: %v", doc.ID, page.Page, err))
			continue
		}
		processed++
		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.CacheCreationInputTokens += resp.Usage.CacheCreationInputTokens
		usage.CacheReadInputTokens += resp.Usage.CacheReadInputTokens

		candidates, err := parseExtraction(resp.Text(), e.cfg.DefaultConfidence)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("document %s page %d: %v", doc.ID, page.Page, err))
			continue
		}
		for _, c := range candidates {
			facts = append(facts, model.FieldFact{
				ListingID:     listingID,
				CanonicalPath: c.Path,
				Value:         c.Value,
				Provenance: model.Provenance{
					SourceType: model.SourceVision,
					SourceRef:  model.SourceRef(doc.ID, page.Page),
					DocumentID: doc.ID,
					PageNumber: page.Page,
					Confidence: c.Confidence,
				},
				Status:        model.FactProposed,
				DocumentIndex: docIndex,
			})
		}
	}

	if processed == 0 {
		return nil, usage, warnings, eris.Errorf("extract: all %d pages of document %s failed", len(pages), doc.ID)
	}
	return facts, usage, warnings, nil
}
