package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/listing-intake/internal/config"
	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/anthropic"
)

// Mode selects the extraction path for a document.
type Mode string

const (
	// ModeAuto routes by text quality score.
	ModeAuto Mode = "auto"
	// ModeNativeText forces the native-text path.
	ModeNativeText Mode = "native_text_only"
	// ModeVision forces per-page vision extraction.
	ModeVision Mode = "vision_only"
)

// PageImage is a rendered document page for vision extraction.
type PageImage struct {
	Page      int
	MediaType string
	Data      []byte
}

// Source supplies document content to the extractor.
type Source interface {
	// Text returns the document's native text layer.
	Text(ctx context.Context, doc model.DocumentRef) (string, error)
	// PageImages renders the document pages for vision extraction.
	PageImages(ctx context.Context, doc model.DocumentRef) ([]PageImage, error)
}

// Result carries the outcome of an extraction run. Facts holds every
// candidate with its accepted/rejected status; Merged holds the winner per
// canonical path.
type Result struct {
	Facts    []model.FieldFact
	Merged   map[string]model.FieldFact
	Quality  map[string]float64
	Warnings []string
	Usage    anthropic.TokenUsage
}

// Extractor runs AI field extraction over listing documents.
type Extractor struct {
	ai     anthropic.Client
	cfg    config.ExtractConfig
	models config.AnthropicConfig
}

// New creates an Extractor.
func New(ai anthropic.Client, cfg config.ExtractConfig, models config.AnthropicConfig) *Extractor {
	return &Extractor{ai: ai, cfg: cfg, models: models}
}

// docOutcome is the per-document extraction result before merging.
type docOutcome struct {
	facts    []model.FieldFact
	quality  float64
	method   string
	warnings []string
	usage    anthropic.TokenUsage
}

// ExtractDocuments extracts canonical fields from all documents of a listing.
// Documents run in parallel (bounded by max_concurrent_documents); merging is
// serialized in upload order so results are deterministic. Per-document
// failures become warnings rather than failing the run.
func (e *Extractor) ExtractDocuments(ctx context.Context, listingID string, docs []model.DocumentRef, src Source, mode Mode) (*Result, error) {
	start := time.Now()
	result := &Result{
		Merged:  map[string]model.FieldFact{},
		Quality: map[string]float64{},
	}
	if len(docs) == 0 {
		return result, nil
	}

	outcomes := make([]*docOutcome, len(docs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrentDocuments)
	for i, doc := range docs {
		g.Go(func() error {
			out, err := e.extractDocument(gCtx, listingID, doc, i, src, mode)
			if err != nil {
				zap.L().Warn("extract: document failed",
					zap.String("listing_id", listingID),
					zap.String("document_id", doc.ID),
					zap.Error(err),
				)
				outcomes[i] = &docOutcome{
					warnings: []string{fmt.Sprintf("document %s (%s): %v", doc.ID, doc.Name, err)},
				}
				return nil
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "extract: documents")
	}

	// Serialized merge in document upload order.
	var candidates []model.FieldFact
	for i, out := range outcomes {
		if out == nil {
			continue
		}
		result.Warnings = append(result.Warnings, out.warnings...)
		result.Usage.InputTokens += out.usage.InputTokens
		result.Usage.OutputTokens += out.usage.OutputTokens
		result.Usage.CacheCreationInputTokens += out.usage.CacheCreationInputTokens
		result.Usage.CacheReadInputTokens += out.usage.CacheReadInputTokens
		if out.method == "native_text" {
			result.Quality[docs[i].ID] = out.quality
		}
		candidates = append(candidates, out.facts...)
	}

	result.Merged, result.Facts = Merge(candidates, e.cfg.DefaultConfidence)

	zap.L().Info("extract: documents complete",
		zap.String("listing_id", listingID),
		zap.Int("documents", len(docs)),
		zap.Int("candidates", len(result.Facts)),
		zap.Int("merged_fields", len(result.Merged)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	result.Usage.LogCost(e.models.SonnetModel, "extract")
	return result, nil
}

// extractDocument routes a single document to the native-text or vision path.
func (e *Extractor) extractDocument(ctx context.Context, listingID string, doc model.DocumentRef, docIndex int, src Source, mode Mode) (*docOutcome, error) {
	out := &docOutcome{}

	if mode != ModeVision {
		text, err := src.Text(ctx, doc)
		if err != nil {
			if mode == ModeNativeText {
				return nil, eris.Wrap(err, "extract: native text")
			}
			zap.L().Warn("extract: text layer unavailable, falling back to vision",
				zap.String("document_id", doc.ID),
				zap.Error(err),
			)
		} else {
			out.quality = QualityScore(text)
			if mode == ModeNativeText || out.quality >= e.cfg.QualityThreshold {
				facts, usage, err := e.extractNativeText(ctx, listingID, doc, docIndex, text)
				if err != nil {
					return nil, err
				}
				out.facts = facts
				out.usage = usage
				out.method = "native_text"
				return out, nil
			}
			zap.L().Info("extract: low text quality, routing to vision",
				zap.String("document_id", doc.ID),
				zap.Float64("quality_score", out.quality),
				zap.Float64("threshold", e.cfg.QualityThreshold),
			)
		}
	}

	facts, usage, warnings, err := e.extractVision(ctx, listingID, doc, docIndex, src)
	if err != nil {
		return nil, err
	}
	out.facts = facts
	out.usage = usage
	out.warnings = warnings
	out.method = "vision"
	return out, nil
}
