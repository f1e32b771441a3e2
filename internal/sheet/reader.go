// Package sheet reads the ASIN input list and writes the tabular output
// produced by a run.
package sheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const asinHeader = "ASIN"

// ReadASINs loads the ASIN column from an input spreadsheet. The format is
// picked by extension: .csv is parsed with encoding/csv, anything else is
// treated as xlsx.
func ReadASINs(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readASINsCSV(path)
	}
	return readASINsXLSX(path)
}

func readASINsXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	return asinsFromRows(rows)
}

func readASINsCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return asinsFromRows(rows)
}

func asinsFromRows(rows [][]string) ([]string, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}

	col := -1
	for i, header := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(header), asinHeader) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("input file must contain an %q column", asinHeader)
	}

	var asins []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if asin := strings.TrimSpace(row[col]); asin != "" {
			asins = append(asins, asin)
		}
	}

	if len(asins) == 0 {
		return nil, fmt.Errorf("no ASINs found in input file")
	}

	return asins, nil
}
