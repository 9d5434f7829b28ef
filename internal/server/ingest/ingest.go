// Package ingest parses bank statement spreadsheets into account rows.
// Only the structure of the table is validated; cell contents are taken as is.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/xuri/excelize/v2"
)

// Required column headers.
const (
	ColumnBank          = "Наименование банка"
	ColumnAccountNumber = "Номер счета (вклада)"
	ColumnOpenDate      = "Дата открытия"
	ColumnCloseDate     = "Дата закрытия"
	ColumnAccountType   = "Вид счета"
	ColumnStatus        = "Состояние счета"
)

// RequiredColumns lists the headers a statement must contain, in report order.
var RequiredColumns = []string{
	ColumnBank,
	ColumnAccountNumber,
	ColumnOpenDate,
	ColumnCloseDate,
	ColumnAccountType,
	ColumnStatus,
}

// MissingColumnsError names every required column absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns: %s", strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == common.ErrMissingColumns
}

var zipMagic = []byte("PK\x03\x04")

// ParseBankStatement reads an xlsx or csv statement. The format is chosen by
// the filename extension and falls back to sniffing the content.
func ParseBankStatement(data []byte, filename string) ([]models.BankAccount, error) {
	table, err := readTable(data, filename)
	if err != nil {
		return nil, err
	}
	return rowsFromTable(table)
}

func readTable(data []byte, filename string) ([][]string, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".xlsx"), bytes.HasPrefix(data, zipMagic):
		return readXLSX(data)
	case strings.HasSuffix(lower, ".xls"):
		return nil, fmt.Errorf("%w: legacy xls is not supported", common.ErrMalformedTable)
	default:
		return readCSV(data)
	}
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedTable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", common.ErrMalformedTable)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedTable, err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not a text table", common.ErrMalformedTable)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedTable, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func sniffDelimiter(data []byte) rune {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func rowsFromTable(table [][]string) ([]models.BankAccount, error) {
	if len(table) == 0 || blank(table[0]) {
		return nil, fmt.Errorf("%w: no header row", common.ErrMalformedTable)
	}
	header := table[0]

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	rows := make([]models.BankAccount, 0, len(table))
	for n, rec := range table[1:] {
		if blank(rec) {
			continue
		}
		cell := func(col string) string {
			i := index[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		opened := cell(ColumnOpenDate)
		openDate := ParseDate(opened)
		if opened != "" && openDate == nil {
			// n is zero-based over data rows; the header is row 1
			return nil, fmt.Errorf("%w: row %d: unparseable %s %q", common.ErrMalformedTable, n+2, ColumnOpenDate, opened)
		}
		rows = append(rows, models.BankAccount{
			Bank:          cell(ColumnBank),
			AccountNumber: cell(ColumnAccountNumber),
			OpenDate:      openDate,
			CloseDate:     ParseDate(cell(ColumnCloseDate)),
			AccountType:   cell(ColumnAccountType),
			Status:        cell(ColumnStatus),
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts the layouts statements are exported with and Excel date
// serials. Anything else yields nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}
