package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

const (
	// LedgerFileName is the ledger file under the data directory
	LedgerFileName = "pnl_ledger.json"
	// PeriodPnLFileName is the per-run P&L file inside a run folder
	PeriodPnLFileName = "period_pnl.json"
)

// FileStore keeps the ledger in a single JSON file
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file ledger store under dataDir
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{path: filepath.Join(dataDir, LedgerFileName)}
}

// Load reads the ledger; a missing file is an empty ledger
func (s *FileStore) Load(ctx context.Context) (*contracts.PnLLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append adds an entry and rewrites the file
func (s *FileStore) Append(ctx context.Context, entry contracts.PnLLedgerEntry) (*contracts.PnLLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.load()
	if err != nil {
		return nil, err
	}
	if ledger.Has(entry.RunID) {
		return nil, fmt.Errorf("run %s: %w", entry.RunID, contracts.ErrDuplicateRun)
	}

	ledger.Entries = append(ledger.Entries, entry)
	if err := writeFile(s.path, ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

func (s *FileStore) load() (*contracts.PnLLedger, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &contracts.PnLLedger{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	var ledger contracts.PnLLedger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	return &ledger, nil
}

// WritePeriodPnL writes the entry as period_pnl.json into a run folder
func WritePeriodPnL(runDir string, entry contracts.PnLLedgerEntry) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", runDir, err)
	}
	return writeFile(filepath.Join(runDir, PeriodPnLFileName), entry)
}

func writeFile(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

var _ contracts.LedgerStore = (*FileStore)(nil)
