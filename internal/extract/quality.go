package extract

import (
	"math"
	"strings"
	"unicode"
)

// mlsKeywords are terms whose presence indicates a usable MLS document.
var mlsKeywords = []string{
	"listing", "property", "address", "price", "bedroom", "bathroom",
	"square feet", "sqft", "acre", "lot size", "year built", "garage",
	"fireplace", "kitchen", "living room",
	"dining room", "master", "bedrooms", "bathrooms", "property type",
	"mls", "listing agent", "broker", "real estate", "subdivision",
	"city", "state", "zip code", "county", "school", "elementary",
	"middle school", "high school", "tax", "assessed value",
	"association fee", "hoa", "utilities", "heating", "cooling",
	"construction", "roof", "foundation", "flooring", "features",
}

// QualityDetails breaks a text quality score into its components.
type QualityDetails struct {
	OverallScore float64 `json:"overall_score"`
	LengthScore  float64 `json:"length_score"`
	EntropyScore float64 `json:"entropy_score"`
	KeywordScore float64 `json:"keyword_score"`
	WordCount    int     `json:"word_count"`
	CharCount    int     `json:"char_count"`
}

// LengthScore scores text by size. Good documents typically run 500+ words
// or 3000+ characters; both ratios are capped at 1 and averaged.
func LengthScore(text string) float64 {
	if text == "" {
		return 0
	}
	wordScore := math.Min(float64(len(strings.Fields(text)))/500.0, 1.0)
	charScore := math.Min(float64(len(text))/3000.0, 1.0)
	return (wordScore + charScore) / 2.0
}

// EntropyScore computes normalized Shannon entropy over the alphanumeric
// characters. OCR garbage and repeated filler score near zero; anything
// under 2.0 bits is treated as garbage outright.
func EntropyScore(text string) float64 {
	if text == "" {
		return 0
	}

	counts := map[rune]int{}
	total := 0
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) && r < 128 || unicode.IsDigit(r) {
			counts[r]++
			total++
		}
	}
	if total < 2 {
		return 0
	}

	entropy := 0.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}

	if entropy < 2.0 {
		return 0
	}
	// max entropy for English text is about 4.7 bits per character
	return math.Min(entropy/4.7, 1.0)
}

// KeywordScore scores by MLS keyword presence; 10+ distinct keywords reads
// as a solid MLS document.
func KeywordScore(text string) float64 {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	found := 0
	for _, kw := range mlsKeywords {
		if strings.Contains(lower, kw) {
			found++
		}
	}
	return math.Min(float64(found)/10.0, 1.0)
}

// QualityScore combines entropy, keyword, and length signals into a single
// 0..1 score, rounded to 3 decimals. Entropy weighs heaviest because it
// catches garbage extractions regardless of size.
func QualityScore(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	overall := EntropyScore(text)*0.40 + KeywordScore(text)*0.35 + LengthScore(text)*0.25
	return math.Round(overall*1000) / 1000
}

// QualityScoreDetails returns the full metric breakdown for logging.
func QualityScoreDetails(text string) QualityDetails {
	return QualityDetails{
		OverallScore: QualityScore(text),
		LengthScore:  LengthScore(text),
		EntropyScore: EntropyScore(text),
		KeywordScore: KeywordScore(text),
		WordCount:    len(strings.Fields(text)),
		CharCount:    len(text),
	}
}
