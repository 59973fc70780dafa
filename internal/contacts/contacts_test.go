package contacts

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want string
	}{
		{"+20 100 123 4567", "201001234567"},
		{"201001234567", "201001234567"},
		{"  +1 650 253 0000 ", "16502530000"},
		{"++44  20", "4420"},
		{"201001234567.0", "201001234567"},
		{"+", ""},
		{"", ""},
		{"12-34", "12-34"},
	}
	for _, tt := range tests {
		got := NormalizePhone(tt.raw)
		if got != tt.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
		}
		for _, r := range got {
			if r == '+' || r == ' ' {
				t.Fatalf("NormalizePhone(%q) kept %q", tt.raw, r)
			}
		}
	}
}

func TestFromRowsSkipsMissingPhone(t *testing.T) {
	t.Parallel()
	rows := [][]string{
		{"Phone", "Name"},
		{"+20 100 123 4567", "Ali"},
		{"", "NoPhone"},
		{"2.01001234568E+11"},
		{"  ", "Blank"},
		{"16502530000", ""},
	}
	got, err := FromRows(rows, Options{})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	want := []Contact{
		{Name: "Ali", Phone: "201001234567", Row: 2},
		{Name: UnknownName, Phone: "201001234568", Row: 4},
		{Name: UnknownName, Phone: "16502530000", Row: 6},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FromRows =\n%+v\nwant\n%+v", got, want)
	}
}

func TestFromRowsHeaderErrors(t *testing.T) {
	t.Parallel()
	if _, err := FromRows(nil, Options{}); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("empty rows err = %v", err)
	}
	if _, err := FromRows([][]string{{"Name", "Mobile"}}, Options{}); !errors.Is(err, ErrNoPhoneColumn) {
		t.Fatalf("missing phone column err = %v", err)
	}
}

func TestFromRowsValidatesWithRegion(t *testing.T) {
	t.Parallel()
	rows := [][]string{
		{"Name", "Phone"},
		{"Google", "6502530000"},
		{"Bad", "123"},
		{"Intl", "+20 100 123 4567"},
	}
	got, err := FromRows(rows, Options{DefaultRegion: "us"})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	want := []Contact{
		{Name: "Google", Phone: "16502530000", Row: 2},
		{Name: "Intl", Phone: "201001234567", Row: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FromRows = %+v, want %+v", got, want)
	}
}

func TestLoadCSV(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "contacts.csv")
	body := "\ufeffName,Phone\nAli,+20 100 123 4567\nMona,\nSara,201001234569\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Ali" || got[1].Phone != "201001234569" {
		t.Fatalf("Load = %+v", got)
	}
}

func TestLoadXLSX(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "contacts.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{"Name", "Phone"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow(sheet, "A2", &[]any{"Ali", 201001234567}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow(sheet, "A3", &[]any{"Empty"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow(sheet, "A4", &[]any{"Sara", "+20 100 123 4569"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	got, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Contact{
		{Name: "Ali", Phone: "201001234567", Row: 2},
		{Name: "Sara", Phone: "201001234569", Row: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.xlsx"), Options{}); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load("contacts.txt", Options{}); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
