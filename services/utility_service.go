package services

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/shopspring/decimal"
)

var (
	whitespaceRegex  = regexp.MustCompile(`\s+`)
	numberRegex      = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	symbolCleanRegex = regexp.MustCompile(`[^A-Z0-9]`)
	parenthesesRegex = regexp.MustCompile(`\(([^)]+)\)`)
)

// UtilityService holds the text and date parsing shared by the IPO data
// providers.
type UtilityService struct{}

func NewUtilityService() *UtilityService {
	return &UtilityService{}
}

// NormalizeTextContent collapses whitespace and strips rupee prefixes.
func (s *UtilityService) NormalizeTextContent(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRegex.ReplaceAllString(strings.TrimSpace(text), " ")

	text = strings.ReplaceAll(text, "₹", "")
	text = strings.ReplaceAll(text, "Rs.", "")
	text = strings.ReplaceAll(text, "Rs ", "")

	return strings.TrimSpace(text)
}

// IsNotAvailable detects placeholders like "TBA", "N/A" or "--".
func (s *UtilityService) IsNotAvailable(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "tba", "to be announced", "tbd", "to be decided", "n/a", "na",
		"not available", "not disclosed", "awaited", "coming soon", "--", "-", "nil", "null":
		return true
	}
	return false
}

// ParseDate accepts the date layouts seen across IPO calendars.
func (s *UtilityService) ParseDate(dateText string) *time.Time {
	if s.IsNotAvailable(dateText) {
		return nil
	}
	normalized := s.NormalizeTextContent(dateText)

	supportedDateFormats := []string{
		"2006-01-02",              // ISO, Finnhub
		time.RFC3339,              // full timestamp
		"Mon, Jan 2, 2006",        // chittorgarh list
		"Monday, January 2, 2006", // full day and month names
		"Jan 2, 2006",
		"January 2, 2006",
		"02 Jan 2006",
		"02-01-2006",
		"02/01/2006",
		"2/1/2006",
		"02-Jan-06",
		"2-Jan-06",
	}
	for _, layout := range supportedDateFormats {
		if parsed, err := time.Parse(layout, normalized); err == nil {
			return &parsed
		}
	}
	return nil
}

// ExtractNumeric returns the first number in text, ignoring currency
// symbols and thousands separators.
func (s *UtilityService) ExtractNumeric(text string) (decimal.Decimal, bool) {
	cleaned := s.NormalizeTextContent(text)
	cleaned = strings.NewReplacer("$", "", ",", "", " ", "").Replace(cleaned)

	match := numberRegex.FindString(cleaned)
	if match == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// ParsePriceBand parses "₹95 - ₹100", "18.00-22.00" or "25" into ordered
// values. A single price yields one element.
func (s *UtilityService) ParsePriceBand(priceBandText string) []decimal.Decimal {
	cleanText := s.NormalizeTextContent(priceBandText)
	cleanText = strings.NewReplacer("$", "", ",", "").Replace(cleanText)
	if cleanText == "" {
		return nil
	}

	for _, separator := range []string{" - ", " to ", " ~ ", "-", "~"} {
		parts := strings.SplitN(cleanText, separator, 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		low, okLow := s.ExtractNumeric(parts[0])
		high, okHigh := s.ExtractNumeric(parts[1])
		if okLow && okHigh {
			if low.GreaterThan(high) {
				low, high = high, low
			}
			return []decimal.Decimal{low, high}
		}
	}

	if price, ok := s.ExtractNumeric(cleanText); ok {
		return []decimal.Decimal{price}
	}
	return nil
}

// NormalizeSymbol upper-cases text and keeps only letters and digits.
func (s *UtilityService) NormalizeSymbol(text string) string {
	if s.IsNotAvailable(text) {
		return ""
	}
	return symbolCleanRegex.ReplaceAllString(strings.ToUpper(text), "")
}

// ExtractCompanyCodeFromText derives a ticker-like code from a company
// name: "(CODE)" when present, else the initials of up to five words.
func (s *UtilityService) ExtractCompanyCodeFromText(companyName string) string {
	if matches := parenthesesRegex.FindStringSubmatch(companyName); len(matches) > 1 {
		return s.NormalizeSymbol(matches[1])
	}

	words := strings.Fields(companyName)
	if len(words) == 0 {
		return ""
	}
	if len(words[0]) <= 5 {
		return s.NormalizeSymbol(words[0])
	}

	var code strings.Builder
	for _, word := range words {
		if code.Len() >= 5 {
			break
		}
		code.WriteByte(word[0])
	}
	return s.NormalizeSymbol(code.String())
}

var sectorKeywords = []struct {
	sector   string
	keywords []string
}{
	{"Technology", []string{"tech", "ai", "cloud", "quantum"}},
	{"Healthcare", []string{"health", "bio", "pharm"}},
	{"Energy", []string{"green", "energy", "solar"}},
	{"Finance", []string{"fin", "bank", "payment"}},
	{"Education", []string{"edu", "learn"}},
}

// DetermineSector guesses a sector from keywords in the company name.
func (s *UtilityService) DetermineSector(companyName string) string {
	name := strings.ToLower(companyName)
	for _, candidate := range sectorKeywords {
		for _, keyword := range candidate.keywords {
			if strings.Contains(name, keyword) {
				return candidate.sector
			}
		}
	}
	return "General"
}

// CalculateIPOStatus derives a status from the subscription window.
func (s *UtilityService) CalculateIPOStatus(openDate, closeDate, now time.Time) models.IPOStatus {
	if now.After(closeDate) {
		return models.IPOStatusClosed
	}
	if !now.Before(openDate) {
		return models.IPOStatusActive
	}
	return models.IPOStatusUpcoming
}

// normalizeLabel lower-cases a header label and drops punctuation.
func (s *UtilityService) normalizeLabel(label string) string {
	normalized := strings.NewReplacer(
		":", "", ".", "", ",", "", "(", "", ")", "", "-", " ", "_", " ",
	).Replace(strings.ToLower(label))
	return strings.Join(strings.Fields(normalized), " ")
}

// calculateMatchScore scores label similarity in [0, 1].
func (s *UtilityService) calculateMatchScore(label1, label2 string) float64 {
	if label1 == label2 {
		return 1.0
	}
	if strings.Contains(label1, label2) || strings.Contains(label2, label1) {
		return 0.8
	}

	words1 := strings.Fields(label1)
	words2 := strings.Fields(label2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}

	matchingWords := 0
	for _, word1 := range words1 {
		for _, word2 := range words2 {
			if word1 == word2 {
				matchingWords++
				break
			}
		}
	}

	// Jaccard similarity
	score := float64(matchingWords) / float64(len(words1)+len(words2)-matchingWords)
	if matchingWords > 0 {
		score = math.Max(score, 0.4)
	}
	return score
}

// FindColumnByLabel returns the index of the header that best matches one
// of targetLabels, or -1.
func (s *UtilityService) FindColumnByLabel(headers []string, targetLabels []string) int {
	bestIndex := -1
	bestScore := 0.0
	for i, header := range headers {
		normalizedHeader := s.normalizeLabel(header)
		for _, target := range targetLabels {
			score := s.calculateMatchScore(normalizedHeader, s.normalizeLabel(target))
			if score > bestScore {
				bestScore = score
				bestIndex = i
			}
		}
	}
	if bestScore < 0.5 {
		return -1
	}
	return bestIndex
}

// GetTargetLabelsForField returns header variations for a scraped field.
func (s *UtilityService) GetTargetLabelsForField(fieldName string) []string {
	labelMap := map[string][]string{
		"company":      {"company", "company name", "issuer company", "ipo"},
		"open_date":    {"opening date", "open date", "ipo open date", "opens on"},
		"close_date":   {"closing date", "close date", "ipo close date", "closes on"},
		"listing_date": {"listing date", "lists on", "tentative listing"},
		"price_band":   {"issue price", "price band", "price range", "issue price rs"},
		"issue_size":   {"issue size", "total issue size", "issue size rs cr"},
		"lot_size":     {"lot size", "market lot", "minimum lot"},
		"symbol":       {"symbol", "nse symbol", "ticker"},
	}
	if labels, exists := labelMap[fieldName]; exists {
		return labels
	}
	return []string{fieldName}
}
