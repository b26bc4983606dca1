package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

const (
	runsDir          = "runs"
	portfolioFile    = "portfolio.json"
	pricesFile       = "prices.json"
	filePermission   = 0o644
	folderPermission = 0o755
)

// RunStore persists each run under <dataDir>/runs/<run_id>/
// ⭐ SSOT: 실행 폴더 레이아웃은 여기서만
type RunStore struct {
	root string
}

// NewRunStore creates a file-backed allocation store
func NewRunStore(dataDir string) *RunStore {
	return &RunStore{root: filepath.Join(dataDir, runsDir)}
}

// RunDir returns the folder of a run (used for trade and P&L artifacts)
func (s *RunStore) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

// SaveRun writes portfolio.json and prices.json for the allocation's run
func (s *RunStore) SaveRun(ctx context.Context, alloc *contracts.Allocation, prices map[string]float64) error {
	if alloc.RunID == "" {
		return fmt.Errorf("allocation has no run id")
	}
	dir := s.RunDir(alloc.RunID)
	if err := os.MkdirAll(dir, folderPermission); err != nil {
		return fmt.Errorf("failed to create run dir: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, portfolioFile), alloc); err != nil {
		return err
	}
	if prices == nil {
		prices = map[string]float64{}
	}
	return writeJSON(filepath.Join(dir, pricesFile), prices)
}

// LoadRun reads the allocation and prices of a run
func (s *RunStore) LoadRun(ctx context.Context, runID string) (*contracts.Allocation, map[string]float64, error) {
	dir := s.RunDir(runID)

	var alloc contracts.Allocation
	if err := readJSON(filepath.Join(dir, portfolioFile), &alloc); err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}

	prices := make(map[string]float64)
	if err := readJSON(filepath.Join(dir, pricesFile), &prices); err != nil && !errors.Is(err, contracts.ErrNotFound) {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &alloc, prices, nil
}

// PreviousRunID returns the latest run strictly before the given run
func (s *RunStore) PreviousRunID(ctx context.Context, before string) (string, error) {
	runs, err := s.listRuns()
	if err != nil {
		return "", err
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i] < before {
			return runs[i], nil
		}
	}
	return "", contracts.ErrNotFound
}

// LatestRunID returns the most recent run with a saved allocation
func (s *RunStore) LatestRunID(ctx context.Context) (string, error) {
	runs, err := s.listRuns()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", contracts.ErrNotFound
	}
	return runs[len(runs)-1], nil
}

// listRuns returns run ids (sortable by time) that contain portfolio.json
func (s *RunStore) listRuns() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), portfolioFile)); err == nil {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", filepath.Base(path), contracts.ErrNotFound)
		}
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

var _ contracts.AllocationStore = (*RunStore)(nil)
