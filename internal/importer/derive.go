package importer

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"mise/models"
)

// MaxUploadSize bounds recipe uploads.
const MaxUploadSize = 5 << 20 // 5 MiB

// DeriveText converts an upload into material the extraction client can use:
// plain text where the format allows it, a base64 payload for images that
// need the vision model.
func DeriveText(data []byte, mime string) (string, string, error) {
	lower := strings.ToLower(mime)
	switch {
	case strings.Contains(lower, "pdf"):
		text, err := extractTextFromPDF(data)
		if err != nil {
			return "", "", err
		}
		return text, "", nil
	case strings.HasPrefix(lower, "text/") || strings.Contains(lower, "json") || strings.Contains(lower, "csv"):
		return string(data), "", nil
	case strings.HasPrefix(lower, "image/"):
		return "", base64.StdEncoding.EncodeToString(data), nil
	default:
		return string(data), "", nil
	}
}

func extractTextFromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// MimeTypeFromName guesses the content type from a file name when the upload
// did not carry one.
func MimeTypeFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// SourceTypeFromMime maps an upload's content type to the recipe source
// channel it represents.
func SourceTypeFromMime(mime string) models.SourceType {
	lower := strings.ToLower(mime)
	switch {
	case strings.HasPrefix(lower, "image/"):
		return models.SourcePhoto
	case strings.Contains(lower, "pdf"):
		return models.SourcePDF
	case strings.Contains(lower, "csv") || strings.Contains(lower, "spreadsheet"):
		return models.SourceSpreadsheet
	default:
		return models.SourceManual
	}
}

// ParseSpreadsheet reads a recipe from CSV without the AI hop. Expected
// columns are name, quantity, unit; a header row is skipped when the quantity
// cell is not numeric. Short rows and blank names are skipped.
func ParseSpreadsheet(nameHint string, data []byte) (Extraction, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Extraction{}, fmt.Errorf("importer: parse csv: %w", err)
	}

	extraction := Extraction{RecipeName: strings.TrimSpace(nameHint)}
	for i, record := range records {
		if len(record) < 2 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		quantity, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return Extraction{}, fmt.Errorf("importer: row %d: quantity %q is not a number", i+1, record[1])
		}
		unit := ""
		if len(record) > 2 {
			unit = strings.TrimSpace(record[2])
		}
		extraction.Ingredients = append(extraction.Ingredients, ExtractedIngredient{
			Name:     name,
			Quantity: quantity,
			Unit:     unit,
		})
	}

	if len(extraction.Ingredients) == 0 {
		return Extraction{}, errors.New("importer: no ingredient rows found in spreadsheet")
	}
	return extraction, nil
}
