package execution

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// TradesFileName is the trade batch file written into each run folder
const TradesFileName = "trades.csv"

var tradesHeader = []string{"B/S", "SYMBOL", "QTY", "PRICE", "PRINCIPAL"}

// WriteTradesCSV writes orders in the broker upload format (B/S,SYMBOL,QTY,PRICE,PRINCIPAL)
func WriteTradesCSV(w io.Writer, orders []contracts.TradeOrder) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradesHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, o := range orders {
		record := []string{
			o.Side.Code(),
			o.Ticker,
			strconv.FormatInt(o.Qty, 10),
			o.Price.StringFixed(4),
			o.Principal.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write %s: %w", o.Ticker, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveTradesFile writes trades.csv into dir and returns its path
func SaveTradesFile(dir string, orders []contracts.TradeOrder) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, TradesFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create trades file: %w", err)
	}
	defer f.Close()

	if err := WriteTradesCSV(f, orders); err != nil {
		return "", err
	}
	return path, f.Close()
}
