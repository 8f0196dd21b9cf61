package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadReport_Text(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		input []byte
		want  string
	}{
		{"plain csv", "report.csv", []byte("a,b\n1,2\n"), "a,b\n1,2\n"},
		{"bom stripped", "report.csv", []byte("\xEF\xBB\xBFa,b\n"), "a,b\n"},
		{"invalid utf8 replaced", "report.txt", []byte("caf\xE9,ok\n"), "caf?,ok\n"},
		{"valid multibyte kept", "report.tsv", []byte("Montréal\tQC\n"), "Montréal\tQC\n"},
		{"no extension", "report", []byte("x\n"), "x\n"},
		{"uppercase extension", "REPORT.CSV", []byte("x\n"), "x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind, err := ReadReport(tt.file, bytes.NewReader(tt.input), 0)
			if err != nil {
				t.Fatalf("ReadReport() error = %v", err)
			}
			if kind != ReportText {
				t.Errorf("kind = %v, want ReportText", kind)
			}
			if got != tt.want {
				t.Errorf("ReadReport() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadReport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		input   string
		limit   int64
		wantErr error
	}{
		{"empty", "report.csv", "", 0, ErrEmptyFile},
		{"too large", "report.csv", "0123456789", 5, ErrFileTooLarge},
		{"unsupported", "report.xls", "data", 0, ErrUnsupportedFile},
		{"pdf", "report.pdf", "data", 0, ErrUnsupportedFile},
		{"corrupt workbook", "report.xlsx", "not a zip", 0, errSpreadsheet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadReport(tt.file, strings.NewReader(tt.input), tt.limit)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadReport() error = %v, want %v", err, tt.wantErr)
			}
			if !IsValidationError(err) {
				t.Errorf("IsValidationError(%v) = false, want true", err)
			}
		})
	}
}

func TestReadReport_ExactLimit(t *testing.T) {
	got, _, err := ReadReport("r.csv", strings.NewReader("12345"), 5)
	if err != nil {
		t.Fatalf("ReadReport() at exact limit error = %v", err)
	}
	if got != "12345" {
		t.Errorf("ReadReport() = %q, want %q", got, "12345")
	}
}

func TestReadReport_NilReader(t *testing.T) {
	if _, _, err := ReadReport("r.csv", nil, 0); !errors.Is(err, ErrNoFile) {
		t.Errorf("ReadReport(nil) error = %v, want ErrNoFile", err)
	}
}

func TestReadReport_Workbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"Dispatch Report - 04/15/2025"},
		{"Generated by RouteDesk"},
		{"Order", "Time", "Client"},
		{"A-100", "1:30 PM", "Jane, Doe"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	got, kind, err := ReadReport("board.xlsx", buf, 0)
	if err != nil {
		t.Fatalf("ReadReport() error = %v", err)
	}
	if kind != ReportWorkbook {
		t.Errorf("kind = %v, want ReportWorkbook", kind)
	}

	want := "Dispatch Report - 04/15/2025\n" +
		"Generated by RouteDesk\n" +
		"Order,Time,Client\n" +
		"A-100,1:30 PM,\"Jane, Doe\"\n"
	if got != want {
		t.Errorf("ReadReport() = %q, want %q", got, want)
	}
}
