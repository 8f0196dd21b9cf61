package core

// report.go turns an uploaded report into the text the parser reads.
//
// Text reports (.csv, .tsv, .txt or no extension) have a UTF-8 BOM stripped
// and invalid UTF-8 replaced with '?'. Workbooks (.xlsx) are flattened from
// the first sheet into comma-separated text so the same parser handles both.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxReportSize caps a report when the caller passes no limit.
const DefaultMaxReportSize = 10 << 20

var errSpreadsheet = errors.New("read spreadsheet")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReportKind distinguishes delimited text from a flattened workbook.
type ReportKind int

const (
	ReportText ReportKind = iota
	ReportWorkbook
)

// ReadReport reads at most limit bytes of the named report and returns its
// content as text. Files over the limit fail with ErrFileTooLarge, empty
// files with ErrEmptyFile and unknown extensions with ErrUnsupportedFile.
func ReadReport(fileName string, r io.Reader, limit int64) (string, ReportKind, error) {
	if r == nil {
		return "", ReportText, ErrNoFile
	}
	if limit <= 0 {
		limit = DefaultMaxReportSize
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	var kind ReportKind
	switch ext {
	case "", ".csv", ".tsv", ".txt":
		kind = ReportText
	case ".xlsx":
		kind = ReportWorkbook
	default:
		return "", ReportText, fmt.Errorf("%w (got %s)", ErrUnsupportedFile, ext)
	}

	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", kind, fmt.Errorf("read report: %w", err)
	}
	if int64(len(raw)) > limit {
		return "", kind, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	if len(raw) == 0 {
		return "", kind, ErrEmptyFile
	}

	if kind == ReportWorkbook {
		text, err := workbookToCSV(raw)
		return text, kind, err
	}
	return sanitizeText(raw), kind, nil
}

// sanitizeText strips a leading BOM and replaces each invalid UTF-8 byte
// sequence with '?'.
func sanitizeText(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	return string(bytes.ToValidUTF8(raw, []byte("?")))
}

// workbookToCSV renders the first sheet of an .xlsx workbook as CSV. Cells
// are read as formatted values, the way the sheet displays them.
func workbookToCSV(raw []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errSpreadsheet, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", errSpreadsheet)
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("%w: sheet %q: %v", errSpreadsheet, sheets[0], err)
	}
	if len(rows) == 0 {
		return "", ErrEmptyFile
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("%w: %v", errSpreadsheet, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("%w: %v", errSpreadsheet, err)
	}
	return buf.String(), nil
}
