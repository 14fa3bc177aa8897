package sheets

import (
	"reflect"
	"testing"
)

func TestFromMatrix(t *testing.T) {
	matrix := [][]string{
		{" Family ID ", "Amount", "", "Notes"},
		{"F1", "12.5", "ignored", "x"},
		{"", "", ""},
		{"F2", "7"},
	}
	sheet := FromMatrix("Data", matrix)

	if want := []string{"Family ID", "Amount", "Notes"}; !reflect.DeepEqual(sheet.Headers, want) {
		t.Fatalf("headers = %v, want %v", sheet.Headers, want)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank row dropped)", len(sheet.Rows))
	}
	if sheet.Rows[0].Number != 2 || sheet.Rows[1].Number != 4 {
		t.Errorf("row numbers = %d,%d, want 2,4", sheet.Rows[0].Number, sheet.Rows[1].Number)
	}
	if got := sheet.Rows[0].Get("Family ID"); got != "F1" {
		t.Errorf("Family ID = %q", got)
	}
	if got := sheet.Rows[1].Get("Notes"); got != "" {
		t.Errorf("short row should read empty, got %q", got)
	}
}

func TestFromMatrix_Empty(t *testing.T) {
	sheet := FromMatrix("Empty", nil)
	if len(sheet.Headers) != 0 || len(sheet.Rows) != 0 {
		t.Fatalf("expected empty sheet, got %+v", sheet)
	}
}

func TestMissingHeaders(t *testing.T) {
	sheet := Sheet{Headers: []string{"Amount", "Family ID"}}
	got := sheet.MissingHeaders([]string{"Family ID", "Member ID", "Amount", "Income"})
	if want := []string{"Member ID", "Income"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("missing = %v, want %v", got, want)
	}
}
