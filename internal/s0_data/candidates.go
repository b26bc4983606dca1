package s0_data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// CandidatesFileName is the default candidate pool file inside the data dir
const CandidatesFileName = "candidates.json"

// CandidatePool is one upstream snapshot of candidates with an optional proposal
// ⭐ SSOT: S0 입력 파일 형식
type CandidatePool struct {
	AsOf       time.Time                     `json:"as_of"`
	Candidates []contracts.CandidateData     `json:"candidates"`
	Proposal   *contracts.ProposedAllocation `json:"proposal,omitempty"`
}

// FileSource loads the candidate pool from a JSON file
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed candidate source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the source file path
func (s *FileSource) Path() string {
	return s.path
}

// Load reads and normalizes the pool
func (s *FileSource) Load(ctx context.Context) (*CandidatePool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("candidate file %s: %w", s.path, contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read candidate file: %w", err)
	}

	return ParsePool(data)
}

// ParsePool decodes a pool; a bare JSON array of candidates is accepted too
func ParsePool(data []byte) (*CandidatePool, error) {
	pool := &CandidatePool{}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &pool.Candidates); err != nil {
			return nil, fmt.Errorf("failed to decode candidates: %w", err)
		}
	} else if err := json.Unmarshal(data, pool); err != nil {
		return nil, fmt.Errorf("failed to decode candidate pool: %w", err)
	}

	for i := range pool.Candidates {
		c := &pool.Candidates[i]
		c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
		if c.Ticker == "" {
			return nil, fmt.Errorf("candidate %d has no ticker", i)
		}
	}

	return pool, nil
}
