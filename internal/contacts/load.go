package contacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	logx "wabulk/pkg/logx"
)

type Options struct {
	// Sheet selects the worksheet of an .xlsx file; empty means the first one.
	Sheet string
	// DefaultRegion turns on libphonenumber validation; invalid numbers are skipped.
	DefaultRegion string
	Log           logx.Logger
}

// Load reads contacts from an .xlsx or .csv file with a Name/Phone header row.
// Rows without a phone are skipped; order follows the file.
func Load(path string, opt Options) ([]Contact, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		rows, err = readXLSX(path, opt.Sheet)
	default:
		return nil, fmt.Errorf("contacts: unsupported file type %q (want .xlsx or .csv)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("contacts: read %s: %w", path, err)
	}
	return FromRows(rows, opt)
}

// FromRows converts a header row plus data rows into contacts.
func FromRows(rows [][]string, opt Options) ([]Contact, error) {
	log := opt.Log
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	nameCol, phoneCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "name":
			nameCol = i
		case "phone":
			phoneCol = i
		}
	}
	if phoneCol < 0 {
		return nil, ErrNoPhoneColumn
	}

	out := make([]Contact, 0, len(rows)-1)
	skipped := 0
	for i, row := range rows[1:] {
		rowNum := i + 2
		phone := NormalizePhone(expandScientific(cell(row, phoneCol)))
		if phone == "" {
			skipped++
			continue
		}
		if region := strings.TrimSpace(opt.DefaultRegion); region != "" {
			canon, err := ValidatePhone(phone, region)
			if err != nil {
				log.Warn("contact skipped: invalid phone", logx.Int("row", rowNum), logx.String("phone", phone), logx.Err(err))
				skipped++
				continue
			}
			phone = canon
		}
		name := strings.TrimSpace(cell(row, nameCol))
		if name == "" {
			name = UnknownName
		}
		out = append(out, Contact{Name: name, Phone: phone, Row: rowNum})
	}
	log.Debug("contacts loaded", logx.Int("count", len(out)), logx.Int("skipped", skipped))
	return out, nil
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// expandScientific rewrites "2.01001234567E+11" as "201001234567".
// Spreadsheet apps store long numbers that way.
func expandScientific(s string) string {
	if !strings.ContainsAny(s, "eE") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.TrimSpace(sheet) == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	return f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}
