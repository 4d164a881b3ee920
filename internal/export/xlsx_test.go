package export

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func sampleRows() []Row {
	return []Row{
		{"id": int64(1), "alert_name": "Door open", "geofence": "Geo1"},
		{"id": int64(2), "alert_name": "Too warm", "geofence": ""},
		{"id": int64(3), "alert_name": "Battery low", "geofence": "Geo3"},
	}
}

func TestDownloadFilterInclusion(t *testing.T) {
	rows := DownloadFilter{IDs: []int64{1, 2}}.Apply(sampleRows())
	if len(rows) != 2 || rowID(rows[0]) != 1 || rowID(rows[1]) != 2 {
		t.Fatalf("inclusion filter kept %v", rows)
	}
}

func TestDownloadFilterExclusion(t *testing.T) {
	rows := DownloadFilter{IDs: []int64{1, 2}, DownloadAll: true}.Apply(sampleRows())
	if len(rows) != 1 || rowID(rows[0]) != 3 {
		t.Fatalf("exclusion filter kept %v", rows)
	}
}

func TestDownloadFilterEmptyIDsKeepsAll(t *testing.T) {
	rows := DownloadFilter{}.Apply(sampleRows())
	if len(rows) != 3 {
		t.Fatalf("empty filter kept %d rows, want 3", len(rows))
	}
}

func TestBuildEmptyRows(t *testing.T) {
	_, _, errBuild := Builder{}.Build(5, nil, []Column{{Label: "Name", Field: "alert_name"}})
	if !errors.Is(errBuild, ErrNoData) {
		t.Fatalf("want ErrNoData, got %v", errBuild)
	}
}

func TestBuildWorkbookContents(t *testing.T) {
	columns := []Column{
		{Label: "Alert Name", Field: "alert_name"},
		{Label: "Geofence", Field: "geofence"},
		{Label: "Created At", Field: "created_at"},
	}
	rows := []Row{
		{"id": int64(1), "alert_name": "Door open", "geofence": "Geo1", "created_at": time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)},
		{"id": int64(2), "alert_name": "Too warm", "geofence": ""},
	}

	buf, filename, errBuild := Builder{}.Build(5, rows, columns)
	if errBuild != nil {
		t.Fatalf("build: %v", errBuild)
	}
	if !strings.HasPrefix(filename, "alert_rules_5_") || !strings.HasSuffix(filename, ".xlsx") {
		t.Fatalf("unexpected filename %q", filename)
	}
	if strings.Contains(filename, ":") || strings.Count(filename, ".") != 1 {
		t.Fatalf("filename timestamp not sanitized: %q", filename)
	}

	file, errOpen := excelize.OpenReader(buf)
	if errOpen != nil {
		t.Fatalf("reopen workbook: %v", errOpen)
	}
	defer file.Close()

	// Header row carries the serial column plus the column labels.
	header, errRows := file.GetRows("Alert Rules")
	if errRows != nil {
		t.Fatalf("read sheet: %v", errRows)
	}
	if len(header) != 3 {
		t.Fatalf("row count = %d, want header + 2 rows", len(header))
	}
	if header[0][0] != "S.No" || header[0][1] != "Alert Name" {
		t.Fatalf("header = %v", header[0])
	}
	if header[1][0] != "1" || header[1][1] != "Door open" || header[1][2] != "Geo1" {
		t.Fatalf("first data row = %v", header[1])
	}
	// Absent values render as N/A.
	if header[2][2] != "N/A" {
		t.Fatalf("empty geofence = %q, want N/A", header[2][2])
	}
	if header[2][3] != "N/A" {
		t.Fatalf("missing timestamp = %q, want N/A", header[2][3])
	}
}

func TestFormatCellRecipients(t *testing.T) {
	row := Row{
		"recipients_email":  []string{"a@x.com", "b@x.com"},
		"recipients_mobile": []string{"+15550100"},
	}
	got := formatCell(Column{Field: "recipients"}, row)
	if got != "a@x.com, b@x.com | +15550100" {
		t.Fatalf("recipients cell = %q", got)
	}

	if got := formatCell(Column{Field: "recipients"}, Row{}); got != "N/A" {
		t.Fatalf("empty recipients = %q, want N/A", got)
	}
}
