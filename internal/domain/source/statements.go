package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FACorreiaa/finance-ingest/internal/domain/extract"
)

// statementMerchantFallback labels rows whose description column is
// empty or missing.
const statementMerchantFallback = "Statement Item"

// StatementSource scans a local folder for downloaded bank statements.
// CSV files are read through header aliases, .txt files line by line
// with the columnar heuristic. Files with other extensions are ignored.
type StatementSource struct {
	folder string
	logger *slog.Logger
	now    func() time.Time
}

func NewStatementSource(folder string, logger *slog.Logger) *StatementSource {
	return &StatementSource{
		folder: folder,
		logger: logger,
		now:    time.Now,
	}
}

func (s *StatementSource) Tag() string { return "statement" }

// Fetch walks the statement folder. An unreadable folder fails the
// whole source; an unreadable or malformed individual file is logged
// and skipped so one bad download cannot block the rest.
func (s *StatementSource) Fetch(ctx context.Context) ([]Candidate, error) {
	entries, err := os.ReadDir(s.folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement folder: %w", err)
	}

	var candidates []Candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(s.folder, entry.Name())
		var (
			fromFile []Candidate
			fileErr  error
		)
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".csv":
			fromFile, fileErr = s.readCSV(path)
		case ".txt":
			fromFile, fileErr = s.readText(path)
		default:
			continue
		}
		if fileErr != nil {
			s.logger.Warn("skipping statement file", slog.String("file", entry.Name()), slog.Any("error", fileErr))
			continue
		}
		candidates = append(candidates, fromFile...)
	}

	return candidates, nil
}

func (s *StatementSource) readCSV(path string) ([]Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var candidates []Candidate
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}

		cand, ok := extract.TabularRow(row, s.now())
		if !ok {
			continue
		}
		if cand.Merchant == "" {
			cand.Merchant = statementMerchantFallback
		}
		candidates = append(candidates, Candidate{Candidate: cand, Snippet: cand.Raw})
	}

	return candidates, nil
}

func (s *StatementSource) readText(path string) ([]Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement text: %w", err)
	}
	defer f.Close()

	var candidates []Candidate
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		cand, ok := extract.StatementLine(scanner.Text(), s.now())
		if !ok {
			continue
		}
		if cand.Merchant == "" {
			cand.Merchant = statementMerchantFallback
		}
		candidates = append(candidates, Candidate{Candidate: cand, Snippet: cand.Raw})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan statement text: %w", err)
	}

	return candidates, nil
}
