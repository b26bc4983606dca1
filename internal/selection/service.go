package selection

import (
	"context"
	"fmt"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/internal/s2_signals"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// Service runs the scoring pass: signals -> risk screens -> composite ranking
type Service struct {
	builder  *s2_signals.Builder
	screener *Screener
	ranker   *Ranker
	logger   *logger.Logger
}

// RankingResult is the output of one scoring pass
type RankingResult struct {
	Candidates []contracts.ScoredCandidate `json:"candidates"`
	Stats      RankStats                   `json:"stats"`
}

// NewService wires the scoring stages
func NewService(builder *s2_signals.Builder, screener *Screener, ranker *Ranker, log *logger.Logger) *Service {
	return &Service{
		builder:  builder,
		screener: screener,
		ranker:   ranker,
		logger:   log,
	}
}

// Score runs the full scoring pass over the candidate pool
func (s *Service) Score(ctx context.Context, candidates []contracts.CandidateData) (*RankingResult, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to score")
	}
	for i, c := range candidates {
		if c.Ticker == "" {
			return nil, fmt.Errorf("candidate %d has no ticker", i)
		}
	}

	signals := s.builder.BuildAll(ctx, candidates)
	risk := s.screener.Screen(candidates)
	ranked, stats := s.ranker.Rank(ctx, candidates, signals, risk)

	return &RankingResult{Candidates: ranked, Stats: stats}, nil
}
