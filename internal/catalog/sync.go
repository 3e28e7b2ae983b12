package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ordermail/internal"
	"ordermail/internal/storage"
)

const lastImportKey = "leads.last_import"

// ImportService loads sourcing leads and their ASIN bank entries from a
// lead spreadsheet.
type ImportService struct {
	db  *storage.DB
	log *slog.Logger
}

func NewImportService(db *storage.DB, log *slog.Logger) *ImportService {
	if log == nil {
		log = slog.Default()
	}
	return &ImportService{db: db, log: log}
}

type ImportResult struct {
	Leads     int
	Asins     int
	Retailers int
	Skipped   int
	// DuplicateUniqueIDs counts leads per unique id shared by several leads.
	DuplicateUniqueIDs map[string]int
}

func (s *ImportService) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportXLSX(ctx, blob)
}

// ImportXLSX upserts every row of the first sheet. Rows without a lead id
// or unique id are skipped.
func (s *ImportService) ImportXLSX(ctx context.Context, content []byte) (ImportResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return ImportResult{}, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{}, err
	}
	if len(rows) == 0 {
		return ImportResult{}, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	idx := buildColumnIndex(rows[0])
	for _, required := range []string{"Lead ID", "Unique ID"} {
		if !idx.has(required) {
			return ImportResult{}, fmt.Errorf("missing column %q", required)
		}
	}

	var (
		result    ImportResult
		retailers = map[string]int64{}
	)
	for i, row := range rows[1:] {
		leadID := idx.cell(row, "Lead ID")
		uniqueID := idx.cell(row, "Unique ID")
		if leadID == "" || uniqueID == "" {
			result.Skipped++
			continue
		}

		lead := internal.SourcingLead{
			LeadID:      leadID,
			UniqueID:    uniqueID,
			ProductName: idx.cell(row, "Product Name"),
			ProductSKU:  idx.cell(row, "Product SKU", "SKU"),
			PPU:         parseMoney(idx.cell(row, "PPU (including ship)", "PPU")),
			RSP:         parseMoney(idx.cell(row, "RSP")),
		}

		if name := idx.cell(row, "Retailer Name", "Retailer"); name != "" {
			id, ok := retailers[strings.ToLower(name)]
			if !ok {
				id, err = s.db.UpsertRetailer(ctx, internal.Retailer{Name: name})
				if err != nil {
					return result, fmt.Errorf("row %d: retailer %s: %w", i+2, name, err)
				}
				retailers[strings.ToLower(name)] = id
				result.Retailers++
			}
			lead.RetailerID = &id
		}

		var asins []internal.AsinBankEntry
		for _, a := range idx.asinPairs(row) {
			asins = append(asins, internal.AsinBankEntry{ASIN: a.ASIN, Size: a.Size})
		}

		if _, err := s.db.ImportLead(ctx, lead, asins); err != nil {
			return result, fmt.Errorf("row %d: %w", i+2, err)
		}
		result.Leads++
		result.Asins += len(asins)
	}

	dups, err := s.db.DuplicateUniqueIDs(ctx)
	if err != nil {
		return result, err
	}
	result.DuplicateUniqueIDs = dups
	for uid, n := range dups {
		s.log.Warn("unique id shared by several leads, lowest id wins", "unique_id", uid, "count", n)
	}

	if err := s.db.SetMetadata(ctx, lastImportKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn("record import time failed", "error", err)
	}
	s.log.Info("lead import complete", "leads", result.Leads, "asins", result.Asins, "skipped", result.Skipped)
	return result, nil
}

func parseMoney(raw string) float64 {
	s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
