package sheet

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
)

// One row per ASIN with numbered image columns. The exact column order is
// part of the output contract.
var columns = []string{
	"ASIN", "Brand", "Title",
	"Bullet_1", "Bullet_2", "Bullet_3", "Bullet_4", "Bullet_5",
	"Description", "MRP", "Selling_Price", "Deal_Name",
	"EBC_Content", "Has_Video",
	"Technical_Details", "Whats_in_the_Box",
	"Review_Count", "Average_Rating", "Questions_Count", "Best_Sellers_Rank",
	"Seller", "Variation_Data",
	"Image_URL_1", "Image_URL_2", "Image_URL_3", "Image_URL_4",
	"Image_URL_5", "Image_URL_6", "Image_URL_7",
	"Image_Count", "Status", "Error_Message",
}

// WriteRecords writes one row per record, preserving slice order. The format
// is picked by extension: .csv or xlsx.
func WriteRecords(path string, records []*models.ProductRecord) error {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return writeCSV(path, records)
	}
	return writeXLSX(path, records)
}

func writeXLSX(path string, records []*models.ProductRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if err := f.SetSheetRow(sheetName, "A1", &columns); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinates: %w", err)
		}
		row := recordRow(record)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx file: %w", err)
	}
	return nil
}

func writeCSV(path string, records []*models.ProductRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, record := range records {
		if err := writer.Write(recordRow(record)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// recordRow flattens a record into the fixed column order.
func recordRow(r *models.ProductRecord) []string {
	row := make([]string, 0, len(columns))
	row = append(row, r.ASIN, r.Brand, r.Title)

	for i := 0; i < models.MaxBulletPoints; i++ {
		if i < len(r.BulletPoints) {
			row = append(row, r.BulletPoints[i])
		} else {
			row = append(row, "")
		}
	}

	row = append(row, r.Description, r.MRP, r.SellingPrice, r.DealName)
	row = append(row, yesNo(r.HasEBCContent), yesNo(r.HasVideo))
	row = append(row, technicalDetailsJSON(r.TechnicalDetails), r.BoxContents)
	row = append(row,
		formatIntPtr(r.ReviewCount),
		formatFloatPtr(r.Rating),
		formatIntPtr(r.QuestionCount),
		r.BestSellerRank,
		r.SellerName,
		variationDataJSON(r.VariationData),
	)

	for i := 0; i < models.MaxImages; i++ {
		if i < len(r.ImageURLs) {
			row = append(row, r.ImageURLs[i])
		} else {
			row = append(row, "")
		}
	}

	row = append(row, strconv.Itoa(r.ImageCount), r.Status, r.ErrorMessage)
	return row
}

func technicalDetailsJSON(details map[string]string) string {
	if len(details) == 0 {
		return ""
	}
	// encoding/json emits map keys sorted, which keeps the column stable.
	data, err := json.Marshal(details)
	if err != nil {
		return ""
	}
	return string(data)
}

func variationDataJSON(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	b, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(b)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
