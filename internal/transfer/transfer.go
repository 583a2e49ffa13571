// Package transfer encodes and decodes item exports in CSV and JSON.
package transfer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/erazemk/freezer/internal/model"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned for formats other than csv and json.
var ErrUnknownFormat = errors.New("unknown format (expected csv or json)")

// Record is one exported item. Categories travel by name.
type Record struct {
	Line           int      `json:"-"`
	Code           string   `json:"qr_code"`
	UPC            string   `json:"upc"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Source         string   `json:"source"`
	Weight         *float64 `json:"weight"`
	WeightUnit     string   `json:"weight_unit"`
	AddedDate      string   `json:"added_date"`
	ExpirationDate string   `json:"expiration_date"`
	Status         string   `json:"status"`
	RemovedDate    string   `json:"removed_date"`
	Notes          string   `json:"notes"`
}

// Batch is the result of decoding an import file. Rows that could not be
// parsed are reported in Errors and left out of Records.
type Batch struct {
	Records []Record
	Errors  []string
}

// Columns is the CSV header, in order.
var Columns = []string{
	"QR Code", "UPC", "Name", "Category", "Source", "Weight", "Weight Unit",
	"Added Date", "Expiration Date", "Status", "Removed Date", "Notes",
}

// FromItems converts items to export records.
func FromItems(items []model.Item) []Record {
	recs := make([]Record, 0, len(items))
	for _, it := range items {
		recs = append(recs, Record{
			Code:           it.Code,
			UPC:            it.UPC,
			Name:           it.Name,
			Category:       it.CategoryName,
			Source:         it.Source,
			Weight:         it.Weight,
			WeightUnit:     it.WeightUnit,
			AddedDate:      it.AddedDate,
			ExpirationDate: it.ExpirationDate,
			Status:         it.Status,
			RemovedDate:    it.RemovedDate,
			Notes:          it.Notes,
		})
	}
	return recs
}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Encode writes records in the given format.
func Encode(w io.Writer, format string, recs []Record) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, recs)
	case FormatJSON:
		return writeJSON(w, recs)
	}
	return ErrUnknownFormat
}

// Decode reads records in the given format.
func Decode(r io.Reader, format string) (*Batch, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatJSON:
		return readJSON(r)
	}
	return nil, ErrUnknownFormat
}

// CSV exports start with a UTF-8 BOM so spreadsheet apps detect the encoding.
func writeCSV(w io.Writer, recs []Record) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bw)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, rec := range recs {
		weight := ""
		if rec.Weight != nil {
			weight = strconv.FormatFloat(*rec.Weight, 'f', -1, 64)
		}
		row := []string{
			rec.Code, rec.UPC, rec.Name, rec.Category, rec.Source, weight, rec.WeightUnit,
			rec.AddedDate, rec.ExpirationDate, rec.Status, rec.RemovedDate, rec.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return bw.Close()
}

func readCSV(r io.Reader) (*Batch, error) {
	// Strip a leading BOM if present.
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Batch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalizeHeader(h)] = i
	}
	if _, ok := index[normalizeHeader("Name")]; !ok {
		return nil, fmt.Errorf("csv is missing the Name column")
	}

	batch := &Batch{}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}

		get := func(col string) string {
			i, ok := index[normalizeHeader(col)]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		if isBlank(row) {
			continue
		}

		rec := Record{
			Line:           line,
			Code:           get("QR Code"),
			UPC:            get("UPC"),
			Name:           get("Name"),
			Category:       get("Category"),
			Source:         get("Source"),
			WeightUnit:     get("Weight Unit"),
			AddedDate:      get("Added Date"),
			ExpirationDate: get("Expiration Date"),
			Status:         get("Status"),
			RemovedDate:    get("Removed Date"),
			Notes:          get("Notes"),
		}
		if w := get("Weight"); w != "" {
			f, err := strconv.ParseFloat(w, 64)
			if err != nil {
				batch.Errors = append(batch.Errors, fmt.Sprintf("row %d: invalid weight %q", line, w))
				continue
			}
			rec.Weight = &f
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "").Replace(h)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

type jsonDoc struct {
	Items []Record `json:"items"`
}

func writeJSON(w io.Writer, recs []Record) error {
	if recs == nil {
		recs = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonDoc{Items: recs}); err != nil {
		return fmt.Errorf("writing json: %w", err)
	}
	return nil
}

// readJSON accepts {"items":[...]} or a bare array.
func readJSON(r io.Reader) (*Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading json: %w", err)
	}

	var recs []Record
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(data, &recs)
	} else {
		var doc jsonDoc
		err = json.Unmarshal(data, &doc)
		recs = doc.Items
	}
	if err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}

	for i := range recs {
		recs[i].Line = i + 1
	}
	return &Batch{Records: recs}, nil
}
