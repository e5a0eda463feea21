package voice

import (
	"regexp"
	"strings"
)

// Intent classifies what the speaker wants.
type Intent string

const (
	IntentProductSearch  Intent = "product_search"
	IntentCategorySearch Intent = "category_search"
	IntentPriceFilter    Intent = "price_filter"
	IntentRatingFilter   Intent = "rating_filter"
	IntentBrandSearch    Intent = "brand_search"
)

// Entity keys.
const (
	entQuery     = "query"
	entCategory  = "category"
	entBrand     = "brand"
	entMinPrice  = "min_price"
	entMaxPrice  = "max_price"
	entMinRating = "min_rating"
)

const (
	confidenceRuleHit = 0.8
	confidenceDefault = 0.5
)

// rule binds one utterance pattern to an intent and an entity capture.
// Rules are ordered: the first hit wins and stops the scan.
type rule struct {
	intent Intent
	re     *regexp.Regexp
	apply  func(groups []string, ents map[string]string)
}

func captureAs(key string) func([]string, map[string]string) {
	return func(groups []string, ents map[string]string) {
		ents[key] = strings.TrimSpace(groups[1])
	}
}

func capturePriceRange(groups []string, ents map[string]string) {
	ents[entMinPrice] = groups[1]
	ents[entMaxPrice] = groups[2]
}

func capturePriceCap(groups []string, ents map[string]string) {
	ents[entMaxPrice] = groups[1]
}

var intentRules = []rule{
	// product search
	{IntentProductSearch, regexp.MustCompile(`find\s+(.+)`), captureAs(entQuery)},
	{IntentProductSearch, regexp.MustCompile(`search\s+for\s+(.+)`), captureAs(entQuery)},
	{IntentProductSearch, regexp.MustCompile(`show\s+me\s+(.+)`), captureAs(entQuery)},
	{IntentProductSearch, regexp.MustCompile(`looking\s+for\s+(.+)`), captureAs(entQuery)},
	{IntentProductSearch, regexp.MustCompile(`i\s+want\s+(.+)`), captureAs(entQuery)},
	{IntentProductSearch, regexp.MustCompile(`need\s+(.+)`), captureAs(entQuery)},
	// category search
	{IntentCategorySearch, regexp.MustCompile(`show\s+(.+)\s+category`), captureAs(entCategory)},
	{IntentCategorySearch, regexp.MustCompile(`browse\s+(.+)`), captureAs(entCategory)},
	{IntentCategorySearch, regexp.MustCompile(`(.+)\s+products`), captureAs(entCategory)},
	{IntentCategorySearch, regexp.MustCompile(`all\s+(.+)`), captureAs(entCategory)},
	// price filter
	{IntentPriceFilter, regexp.MustCompile(`under\s+\$?(\d+)`), capturePriceCap},
	{IntentPriceFilter, regexp.MustCompile(`less\s+than\s+\$?(\d+)`), capturePriceCap},
	{IntentPriceFilter, regexp.MustCompile(`below\s+\$?(\d+)`), capturePriceCap},
	{IntentPriceFilter, regexp.MustCompile(`cheaper\s+than\s+\$?(\d+)`), capturePriceCap},
	{IntentPriceFilter, regexp.MustCompile(`between\s+\$?(\d+)\s+and\s+\$?(\d+)`), capturePriceRange},
	{IntentPriceFilter, regexp.MustCompile(`from\s+\$?(\d+)\s+to\s+\$?(\d+)`), capturePriceRange},
	// rating filter
	{IntentRatingFilter, regexp.MustCompile(`(\d+)\s+stars?\s+or\s+higher`), captureAs(entMinRating)},
	{IntentRatingFilter, regexp.MustCompile(`rated\s+(\d+)\s+stars?\s+or\s+above`), captureAs(entMinRating)},
	{IntentRatingFilter, regexp.MustCompile(`minimum\s+(\d+)\s+stars?`), captureAs(entMinRating)},
	{IntentRatingFilter, regexp.MustCompile(`at\s+least\s+(\d+)\s+stars?`), captureAs(entMinRating)},
	// brand search
	{IntentBrandSearch, regexp.MustCompile(`from\s+(.+)\s+brand`), captureAs(entBrand)},
	{IntentBrandSearch, regexp.MustCompile(`by\s+(.+)`), captureAs(entBrand)},
	{IntentBrandSearch, regexp.MustCompile(`made\s+by\s+(.+)`), captureAs(entBrand)},
	{IntentBrandSearch, regexp.MustCompile(`(.+)\s+brand`), captureAs(entBrand)},
}

// knownCategories and knownBrands are lexicons scanned after the rule
// pass; a mention anywhere in the utterance sets the entity.
var knownCategories = []string{
	"electronics", "clothing", "books", "home", "garden", "sports",
	"automotive", "beauty", "health", "toys", "games", "music",
	"movies", "food", "beverages", "furniture", "appliances",
}

var knownBrands = []string{
	"apple", "samsung", "sony", "nike", "adidas", "amazon",
	"google", "microsoft", "dell", "hp", "canon", "nikon",
}

var (
	fillerRe     = regexp.MustCompile(`\b(um|uh|like|you know|actually|basically)\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	dollarRe     = regexp.MustCompile(`\$(\d+(?:\.\d{2})?)`)
	dollarWordRe = regexp.MustCompile(`(\d+)\s*(?:dollars?|bucks?)`)
	starsRe      = regexp.MustCompile(`(\d+(?:\.\d)?)\s*stars?`)
)

// cleanText lowercases, strips filler words and collapses whitespace.
func cleanText(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = fillerRe.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// extract runs the ordered rule scan and the lexicon pass.
func extract(text string) (Intent, map[string]string, float64) {
	ents := make(map[string]string)
	intent := IntentProductSearch
	confidence := confidenceDefault

	for _, r := range intentRules {
		if m := r.re.FindStringSubmatch(text); m != nil {
			intent = r.intent
			confidence = confidenceRuleHit
			r.apply(m, ents)
			break
		}
	}

	extractLexicon(text, ents)

	if _, ok := ents[entQuery]; !ok && intent == IntentProductSearch {
		ents[entQuery] = text
	}
	return intent, ents, confidence
}

// extractLexicon picks up category, brand, price and rating mentions
// anywhere in the utterance. A lexicon hit canonicalizes a rule capture
// ("electronics category" becomes just "electronics").
func extractLexicon(text string, ents map[string]string) {
	for _, c := range knownCategories {
		if strings.Contains(text, c) {
			ents[entCategory] = c
			break
		}
	}
	for _, b := range knownBrands {
		if strings.Contains(text, b) {
			ents[entBrand] = b
			break
		}
	}
	if _, ok := ents[entMaxPrice]; !ok {
		if m := dollarRe.FindStringSubmatch(text); m != nil {
			ents[entMaxPrice] = m[1]
		} else if m := dollarWordRe.FindStringSubmatch(text); m != nil {
			ents[entMaxPrice] = m[1]
		}
	}
	if m := starsRe.FindStringSubmatch(text); m != nil {
		ents[entMinRating] = m[1]
	}
}
