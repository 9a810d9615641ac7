package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/listing-intake/internal/config"
	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/anthropic"
)

const captionStyle = `You are an expert real estate copywriter. You analyze property photos and write engaging, professional captions for a listing website.

Style:
- Inviting, professional tone; high-value adjectives where earned.
- Neutral, MLS-safe language. No assumptions about materials, upgrades, or
  condition unless clearly visible. No Fair Housing language.
- 2-3 sentences max. Highlight the best visible features; if the room is
  empty, emphasize the potential. Never describe clutter or bad angles.`

const analyzePrompt = `Analyze this property photo.

1. Identify which room or area is shown. Choose ONE label:
   front_exterior, back_exterior, side_exterior, backyard,
   living_room, kitchen, bedroom, bathroom, dining_room,
   master_bedroom, primary_bedroom, guest_bedroom,
   master_bathroom, primary_bathroom, guest_bathroom,
   patio, deck, garage, basement, attic,
   community, amenities, floor_plan, map, other

2. Photo type: interior | exterior | floor_plan | map | other

3. Write a caption per the style guidelines.

Return JSON:
{"room_label": "string", "photo_type": "string", "description": "string"}`

const describePrompt = `Write a caption for this property photo per the style guidelines. The photo shows the %s.

Return JSON:
{"description": "string"}`

// Analysis is the vision output for one photo.
type Analysis struct {
	RoomLabel          string `json:"room_label"`
	PhotoType          string `json:"photo_type"`
	Description        string `json:"description"`
	IsPrimaryCandidate bool   `json:"-"`
}

// ImageSource loads photo bytes for analysis.
type ImageSource interface {
	ImageData(ctx context.Context, img model.Image) (data []byte, mediaType string, err error)
}

// Result carries the outcome of an annotation run.
type Result struct {
	Annotated int
	Warnings  []string
	Usage     anthropic.TokenUsage
}

// Analyzer labels and captions listing photos with vision AI.
type Analyzer struct {
	ai     anthropic.Client
	cfg    config.EnrichConfig
	models config.AnthropicConfig
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(ai anthropic.Client, cfg config.EnrichConfig, models config.AnthropicConfig) *Analyzer {
	return &Analyzer{ai: ai, cfg: cfg, models: models}
}

// AnalyzeImage labels and captions a single photo. A filename that names the
// room takes precedence over vision labeling; vision still writes the
// caption. Vision failures degrade to the "other" label with an empty
// description rather than erroring.
func (a *Analyzer) AnalyzeImage(ctx context.Context, filename, mediaType string, data []byte) (Analysis, anthropic.TokenUsage, error) {
	if label, ok := FromFilename(filename); ok {
		analysis := Analysis{
			RoomLabel:          label,
			PhotoType:          PhotoTypeFor(label),
			IsPrimaryCandidate: label == "front_exterior",
		}
		desc, usage, err := a.describe(ctx, label, mediaType, data)
		if err != nil {
			// The label came from the filename, not the model, so a caption
			// failure only loses the description.
			return analysis, usage, err
		}
		analysis.Description = desc
		return analysis, usage, nil
	}

	resp, err := a.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.models.HaikuModel,
		MaxTokens: 1024,
		System:    anthropic.BuildCachedSystemBlocks(captionStyle),
		Messages: []anthropic.Message{
			{
				Role:    "user",
				Content: analyzePrompt,
				Images:  []anthropic.Image{{MediaType: mediaType, Data: data}},
			},
		},
	})
	if err != nil {
		return Analysis{}, anthropic.TokenUsage{}, err
	}

	analysis := Analysis{RoomLabel: "other", PhotoType: "other"}
	if raw, ok := jsonObject(resp.Text()); ok {
		_ = json.Unmarshal([]byte(raw), &analysis)
	}
	if !IsValidLabel(analysis.RoomLabel) {
		analysis.RoomLabel = "other"
		analysis.PhotoType = "other"
	}
	analysis.IsPrimaryCandidate = analysis.RoomLabel == "front_exterior" && analysis.PhotoType == "exterior"
	return analysis, resp.Usage, nil
}

// describe runs the caption-only prompt for a photo whose label is known.
func (a *Analyzer) describe(ctx context.Context, label, mediaType string, data []byte) (string, anthropic.TokenUsage, error) {
	resp, err := a.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.models.HaikuModel,
		MaxTokens: 512,
		System:    anthropic.BuildCachedSystemBlocks(captionStyle),
		Messages: []anthropic.Message{
			{
				Role:    "user",
				Content: fmt.Sprintf(describePrompt, DisplayLabel(label)),
				Images:  []anthropic.Image{{MediaType: mediaType, Data: data}},
			},
		},
	})
	if err != nil {
		return "", anthropic.TokenUsage{}, err
	}

	var out struct {
		Description string `json:"description"`
	}
	if raw, ok := jsonObject(resp.Text()); ok {
		_ = json.Unmarshal([]byte(raw), &out)
	}
	return out.Description, resp.Usage, nil
}

// AnnotateAll labels and captions every image concurrently (bounded by
// max_concurrent_images) and writes the AI suggestions onto the records.
// User-set final labels are a separate column and never touched. A failed
// image gets the "other" label, an empty description, and a warning.
func (a *Analyzer) AnnotateAll(ctx context.Context, images []*model.Image, src ImageSource) *Result {
	start := time.Now()
	result := &Result{}
	if len(images) == 0 {
		return result
	}

	warnings := make([]string, len(images))
	usages := make([]anthropic.TokenUsage, len(images))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrentImages)
	for i, img := range images {
		g.Go(func() error {
			var analysis Analysis
			data, mediaType, err := src.ImageData(gCtx, *img)
			if err == nil {
				analysis, usages[i], err = a.AnalyzeImage(gCtx, img.Filename, mediaType, data)
				if err == nil {
					img.AISuggestedLabel = model.Ptr(analysis.RoomLabel)
					img.AISuggestedDescription = model.Ptr(analysis.Description)
					img.PhotoType = model.Ptr(analysis.PhotoType)
					return nil
				}
			}
			zap.L().Warn("enrich: image analysis failed",
				zap.String("image_id", img.ID),
				zap.String("filename", img.Filename),
				zap.Error(err),
			)
			warnings[i] = fmt.Sprintf("image %s (%s): %v", img.ID, img.Filename, err)
			// A filename-derived label survives a failed caption call; only
			// a fully unlabeled image falls back to "other".
			if analysis.RoomLabel == "" {
				analysis.RoomLabel = "other"
				analysis.PhotoType = "other"
			}
			img.AISuggestedLabel = model.Ptr(analysis.RoomLabel)
			img.AISuggestedDescription = model.Ptr("")
			img.PhotoType = model.Ptr(analysis.PhotoType)
			return nil
		})
	}
	_ = g.Wait()

	for i := range images {
		if warnings[i] != "" {
			result.Warnings = append(result.Warnings, warnings[i])
		} else {
			result.Annotated++
		}
		result.Usage.InputTokens += usages[i].InputTokens
		result.Usage.OutputTokens += usages[i].OutputTokens
		result.Usage.CacheCreationInputTokens += usages[i].CacheCreationInputTokens
		result.Usage.CacheReadInputTokens += usages[i].CacheReadInputTokens
	}

	zap.L().Info("enrich: annotation complete",
		zap.Int("images", len(images)),
		zap.Int("annotated", result.Annotated),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	result.Usage.LogCost(a.models.HaikuModel, "enrich")
	return result
}

// jsonObject returns the first balanced JSON object in s.
func jsonObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
