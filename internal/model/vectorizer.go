package model

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// tokenPattern matches word tokens of two or more characters, mirroring the
// tokenization the vectorizer was fitted with.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// Vectorizer is a fitted TF-IDF feature transform. All fields are read-only
// after loading; Transform is safe for concurrent use.
type Vectorizer struct {
	Lowercase  bool           `json:"lowercase"`
	NgramMin   int            `json:"ngram_min"`
	NgramMax   int            `json:"ngram_max"`
	StopWords  []string       `json:"stop_words"`
	Vocabulary map[string]int `json:"vocabulary"`
	Idf        []float64      `json:"idf"`

	stopSet map[string]struct{}
}

// init prepares derived lookup structures after the vectorizer is decoded.
func (v *Vectorizer) init() error {
	if len(v.Vocabulary) == 0 {
		return fmt.Errorf("vectorizer has empty vocabulary")
	}
	if v.NgramMin <= 0 {
		v.NgramMin = 1
	}
	if v.NgramMax < v.NgramMin {
		v.NgramMax = v.NgramMin
	}
	for _, idx := range v.Vocabulary {
		if idx < 0 || idx >= len(v.Idf) {
			return fmt.Errorf("vocabulary index %d out of idf range %d", idx, len(v.Idf))
		}
	}
	v.stopSet = make(map[string]struct{}, len(v.StopWords))
	for _, w := range v.StopWords {
		v.stopSet[w] = struct{}{}
	}
	return nil
}

// Transform converts raw text into an l2-normalized sparse TF-IDF vector
// keyed by vocabulary index. Unknown terms are dropped; text with no known
// terms yields an empty vector.
func (v *Vectorizer) Transform(text string) (map[int]float64, error) {
	if v.stopSet == nil {
		if err := v.init(); err != nil {
			return nil, err
		}
	}

	if v.Lowercase {
		text = strings.ToLower(text)
	}

	tokens := tokenPattern.FindAllString(text, -1)
	if len(v.stopSet) > 0 {
		kept := tokens[:0]
		for _, tok := range tokens {
			if _, stop := v.stopSet[tok]; !stop {
				kept = append(kept, tok)
			}
		}
		tokens = kept
	}

	counts := make(map[int]float64)
	for n := v.NgramMin; n <= v.NgramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := strings.Join(tokens[i:i+n], " ")
			if idx, ok := v.Vocabulary[term]; ok {
				counts[idx]++
			}
		}
	}

	// Apply idf weights and l2-normalize.
	var sumSquares float64
	for idx, tf := range counts {
		w := tf * v.Idf[idx]
		counts[idx] = w
		sumSquares += w * w
	}
	if sumSquares > 0 {
		norm := math.Sqrt(sumSquares)
		for idx := range counts {
			counts[idx] /= norm
		}
	}

	return counts, nil
}

// VocabularySize returns the number of fitted terms.
func (v *Vectorizer) VocabularySize() int {
	return len(v.Vocabulary)
}
