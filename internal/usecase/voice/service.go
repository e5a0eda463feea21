// Package voice turns spoken utterances into search intents and
// navigation parameters. An ordered regex rule scan does the work; a
// model-backed extractor can optionally back it up for utterances the
// rules cannot classify.
package voice

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/shopscope/shopscope/internal/domain/filterstate"
	"github.com/shopscope/shopscope/internal/logger"
)

// Result is one processed utterance.
type Result struct {
	OriginalText  string            `json:"original_text"`
	ProcessedText string            `json:"processed_text"`
	Intent        Intent            `json:"intent"`
	Entities      map[string]string `json:"entities"`
	Confidence    float64           `json:"confidence"`
}

// SearchParams converts the extracted entities into navigation params.
func (r Result) SearchParams() url.Values {
	v := url.Values{}
	if q, ok := r.Entities[entQuery]; ok {
		v.Set(filterstate.ParamQuery, q)
	}
	if c, ok := r.Entities[entCategory]; ok {
		v.Set(filterstate.ParamCategory, c)
	}
	if b, ok := r.Entities[entBrand]; ok {
		v.Set(filterstate.ParamBrand, b)
	}
	if p, ok := r.Entities[entMinPrice]; ok {
		v.Set(filterstate.ParamMinPrice, p)
	}
	if p, ok := r.Entities[entMaxPrice]; ok {
		v.Set(filterstate.ParamMaxPrice, p)
	}
	if rt, ok := r.Entities[entMinRating]; ok {
		v.Set(filterstate.ParamMinRating, rt)
	}
	v.Set(filterstate.ParamSort, string(filterstate.SortRelevance))
	return v
}

// Service processes voice queries.
type Service struct {
	extractor Extractor
}

// New creates the voice service. extractor may be nil.
func New(extractor Extractor) *Service {
	return &Service{extractor: extractor}
}

// Process cleans the utterance and extracts intent and entities. The
// model extractor is consulted only when the rules yield the default
// intent; its entities fill gaps but never overwrite rule captures.
func (s *Service) Process(ctx context.Context, text string) (Result, error) {
	processed := cleanText(text)
	intent, ents, confidence := extract(processed)

	if s.extractor != nil && confidence <= confidenceDefault {
		modelIntent, modelEnts, err := s.extractor.Extract(ctx, processed)
		if err != nil {
			logger.FromContext(ctx).Warn("model intent extraction failed", zap.Error(err))
		} else {
			if modelIntent != "" {
				intent = modelIntent
				confidence = confidenceRuleHit
			}
			for k, v := range modelEnts {
				if _, taken := ents[k]; !taken && v != "" {
					ents[k] = v
				}
			}
		}
	}

	return Result{
		OriginalText:  text,
		ProcessedText: processed,
		Intent:        intent,
		Entities:      ents,
		Confidence:    confidence,
	}, nil
}

// Derive satisfies the session orchestrator's voice contract.
func (s *Service) Derive(ctx context.Context, text string) (url.Values, error) {
	result, err := s.Process(ctx, text)
	if err != nil {
		return nil, err
	}
	return result.SearchParams(), nil
}
