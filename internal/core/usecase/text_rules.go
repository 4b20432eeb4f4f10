package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

const (
	minTokenConfidence     = 30.0
	minTokenRunes          = 2
	signatureMaxConfidence = 70.0
	signatureMinRunes      = 4
)

type textBucket int

const (
	bucketIdentifiers textBucket = iota
	bucketDates
	bucketSignatures
	bucketNumbers
	bucketBrands
)

// wordPattern anchors core between Unicode-aware word boundaries, so Å, Ä and Ö count as letters.
// The core is exposed as submatch 1.
func wordPattern(core string) *regexp.Regexp {
	const edge = `[^\p{L}\p{N}_]`
	return regexp.MustCompile(`(?:^|` + edge + `)(` + core + `)(?:$|` + edge + `)`)
}

var (
	yearPattern         = wordPattern(`(?:18|19|20)\d{2}`)
	modelNumberPattern  = wordPattern(`\d+[A-Z]?|[A-Z]+\d+`)
	cardNumberPattern   = wordPattern(`\d+/\d+`)
	cardEditionPattern  = wordPattern(`1ST|FIRST|EDITION|SHADOWLESS|UNLIMITED`)
	porcelainMakers     = wordPattern(`RÖRSTRAND|GUSTAVSBERG|ROYAL|COPENHAGEN|WEDGWOOD|SPODE`)
	porcelainPatternNo  = wordPattern(`[A-Z]{2,}\s?\d+`)
	coinKeywords        = wordPattern(`SVERIGE|SWEDEN|KRONOR|ÖRE|RIKSBANK`)
	coinDenomination    = wordPattern(`\d+\s?(?:KR|ÖRE|KRONOR)`)
	stampKeywords       = wordPattern(`SVERIGE|SWEDEN|POST|POSTAGE`)
	stampDenomination   = wordPattern(`\d+\s?(?:ÖRE|KR)`)
	trademarkGlyphChars = "©®™"
)

// tokenRule files a token into bucket when match accepts its upper-cased text.
type tokenRule struct {
	bucket textBucket
	match  func(upper string) bool
}

func matches(re *regexp.Regexp) func(string) bool {
	return re.MatchString
}

func hasTrademarkGlyph(upper string) bool {
	return strings.ContainsAny(upper, trademarkGlyphChars)
}

// categoryTextRules holds identifier and brand rules per category. Categories without
// an entry only get the shared date, number and signature rules.
var categoryTextRules = map[domain.Category][]tokenRule{
	domain.CategoryCards: {
		{bucketIdentifiers, matches(cardNumberPattern)},
		{bucketIdentifiers, hasTrademarkGlyph},
		{bucketIdentifiers, matches(cardEditionPattern)},
	},
	domain.CategoryPorcelain: {
		{bucketBrands, matches(porcelainMakers)},
		{bucketIdentifiers, matches(porcelainPatternNo)},
	},
	domain.CategoryCoin: {
		{bucketIdentifiers, matches(coinKeywords)},
		{bucketIdentifiers, matches(coinDenomination)},
	},
	domain.CategoryStamp: {
		{bucketIdentifiers, matches(stampKeywords)},
		{bucketIdentifiers, matches(stampDenomination)},
	},
}

// bucketSet accumulates values per bucket with set semantics, keeping first-occurrence order.
type bucketSet struct {
	values map[textBucket][]string
	seen   map[textBucket]map[string]struct{}
}

func newBucketSet() *bucketSet {
	return &bucketSet{
		values: make(map[textBucket][]string),
		seen:   make(map[textBucket]map[string]struct{}),
	}
}

func (b *bucketSet) add(bucket textBucket, value string) {
	if value == "" {
		return
	}
	seen, ok := b.seen[bucket]
	if !ok {
		seen = make(map[string]struct{})
		b.seen[bucket] = seen
	}
	if _, dup := seen[value]; dup {
		return
	}
	seen[value] = struct{}{}
	b.values[bucket] = append(b.values[bucket], value)
}

func (b *bucketSet) list(bucket textBucket) []string {
	out := make([]string, len(b.values[bucket]))
	copy(out, b.values[bucket])
	return out
}

func (b *bucketSet) buckets() domain.ExtractedTextBuckets {
	return domain.ExtractedTextBuckets{
		Identifiers: b.list(bucketIdentifiers),
		Dates:       b.list(bucketDates),
		Signatures:  b.list(bucketSignatures),
		Numbers:     b.list(bucketNumbers),
		Brands:      b.list(bucketBrands),
	}
}

// keepToken reports whether an OCR token is confident and long enough to classify.
func keepToken(token domain.TextToken) bool {
	return token.Confidence > minTokenConfidence &&
		utf8.RuneCountInString(strings.TrimSpace(token.Text)) >= minTokenRunes
}

// FilterTokens drops low-confidence and single-character tokens and trims the rest.
func FilterTokens(tokens []domain.TextToken) []domain.TextToken {
	out := make([]domain.TextToken, 0, len(tokens))
	for _, token := range tokens {
		if !keepToken(token) {
			continue
		}
		token.Text = strings.TrimSpace(token.Text)
		out = append(out, token)
	}
	return out
}

// ClassifyTokens files each kept token into zero or more buckets. Bucket membership does not
// depend on token order. Buckets store the trimmed original text; dates store the matched year.
func ClassifyTokens(tokens []domain.TextToken, category domain.Category) domain.TextExtraction {
	set := newBucketSet()
	detected := make([]string, 0, len(tokens))
	detectedSeen := make(map[string]struct{}, len(tokens))
	rules := categoryTextRules[category]

	for _, token := range FilterTokens(tokens) {
		text := token.Text
		upper := strings.ToUpper(text)

		if _, dup := detectedSeen[text]; !dup {
			detectedSeen[text] = struct{}{}
			detected = append(detected, text)
		}

		if m := yearPattern.FindStringSubmatch(upper); m != nil {
			set.add(bucketDates, m[1])
		}
		if modelNumberPattern.MatchString(upper) {
			set.add(bucketNumbers, text)
		}
		for _, rule := range rules {
			if rule.match(upper) {
				set.add(rule.bucket, text)
			}
		}
		if looksLikeSignature(token) {
			set.add(bucketSignatures, text)
		}
	}

	return domain.TextExtraction{
		ExtractedTextBuckets: set.buckets(),
		DetectedText:         detected,
	}
}

// looksLikeSignature treats low-confidence tokens containing letters as possible handwriting.
func looksLikeSignature(token domain.TextToken) bool {
	if token.Confidence >= signatureMaxConfidence {
		return false
	}
	if utf8.RuneCountInString(token.Text) < signatureMinRunes {
		return false
	}
	return strings.IndexFunc(token.Text, unicode.IsLetter) >= 0
}
