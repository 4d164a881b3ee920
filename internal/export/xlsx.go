// Package export renders rule listings into formatted spreadsheet buffers for
// download by the API layer.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ErrNoData marks an export request that matched zero rows. Callers surface a
// distinct empty-state message instead of producing an empty file.
var ErrNoData = errors.New("export: no rows to export")

// ContentType is the MIME type of the produced buffer.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetName      = "Alert Rules"
	minColumnWidth = 10
	widthPadding   = 2
	cellNA         = "N/A"
)

// Row is a loosely-typed export row keyed by field name.
type Row map[string]any

// Column describes one spreadsheet column. Formatter, when set, handles fields
// without a fixed formatting rule.
type Column struct {
	Label     string                          // Header label.
	Field     string                          // Row field name.
	Width     float64                         // Fixed width; 0 auto-sizes.
	Formatter func(value any, row Row) string // Fallback formatter.
}

// DownloadFilter mirrors equipment-selection semantics for exports: with
// DownloadAll set, IDs are exclusions; otherwise they are the inclusion list.
type DownloadFilter struct {
	IDs         []int64
	DownloadAll bool
}

// Apply filters rows by their "id" field.
func (f DownloadFilter) Apply(rows []Row) []Row {
	if len(f.IDs) == 0 {
		return rows
	}
	picked := make(map[int64]struct{}, len(f.IDs))
	for _, id := range f.IDs {
		picked[id] = struct{}{}
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		id := rowID(row)
		_, listed := picked[id]
		if f.DownloadAll != listed {
			out = append(out, row)
		}
	}
	return out
}

// Builder renders spreadsheets. A non-empty DebugDir additionally persists
// every buffer to disk, which non-production environments use for inspection.
type Builder struct {
	DebugDir string
}

// Build renders rows under the column spec into an xlsx buffer and returns it
// with a customer- and timestamp-derived filename.
func (b Builder) Build(customerID uint64, rows []Row, columns []Column) (*bytes.Buffer, string, error) {
	if len(rows) == 0 {
		return nil, "", ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, errStyle := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if errStyle != nil {
		return nil, "", fmt.Errorf("export: header style: %w", errStyle)
	}

	// S.No is always the first column.
	specs := append([]Column{{Label: "S.No", Field: "s_no"}}, columns...)
	widths := make([]int, len(specs))

	for col, spec := range specs {
		cell, errCell := excelize.CoordinatesToCellName(col+1, 1)
		if errCell != nil {
			return nil, "", fmt.Errorf("export: header cell: %w", errCell)
		}
		if errSet := f.SetCellValue(sheetName, cell, spec.Label); errSet != nil {
			return nil, "", fmt.Errorf("export: header cell %s: %w", cell, errSet)
		}
		if errSet := f.SetCellStyle(sheetName, cell, cell, headerStyle); errSet != nil {
			return nil, "", fmt.Errorf("export: header style %s: %w", cell, errSet)
		}
		widths[col] = len(spec.Label)
	}

	for rowIdx, row := range rows {
		for col, spec := range specs {
			var rendered string
			if spec.Field == "s_no" {
				rendered = fmt.Sprint(rowIdx + 1)
			} else {
				rendered = formatCell(spec, row)
			}
			cell, errCell := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if errCell != nil {
				return nil, "", fmt.Errorf("export: cell: %w", errCell)
			}
			if errSet := f.SetCellValue(sheetName, cell, rendered); errSet != nil {
				return nil, "", fmt.Errorf("export: cell %s: %w", cell, errSet)
			}
			if len(rendered) > widths[col] {
				widths[col] = len(rendered)
			}
		}
	}

	for col, spec := range specs {
		name, errCol := excelize.ColumnNumberToName(col + 1)
		if errCol != nil {
			return nil, "", fmt.Errorf("export: column name: %w", errCol)
		}
		width := spec.Width
		if width <= 0 {
			width = float64(widths[col] + widthPadding)
			if width < minColumnWidth {
				width = minColumnWidth
			}
		}
		if errSet := f.SetColWidth(sheetName, name, name, width); errSet != nil {
			return nil, "", fmt.Errorf("export: column width: %w", errSet)
		}
	}

	var buf bytes.Buffer
	if _, errWrite := f.WriteTo(&buf); errWrite != nil {
		return nil, "", fmt.Errorf("export: write buffer: %w", errWrite)
	}

	filename := exportFilename(customerID, time.Now())
	if b.DebugDir != "" {
		b.dumpDebugCopy(buf.Bytes(), filename)
	}
	return &buf, filename, nil
}

// formatCell applies the fixed per-field formatting rules, falling back to the
// column formatter and finally the raw value.
func formatCell(spec Column, row Row) string {
	value := row[spec.Field]
	switch spec.Field {
	case "alert_name", "name":
		return stringOrNA(value)
	case "category", "category_name":
		return stringOrNA(value)
	case "events", "event_name", "event_names":
		return joinOrNA(value)
	case "deliveryMethods", "delivery_method", "delivery_method_names":
		return joinOrNA(value)
	case "recipients":
		emails := stringList(row["recipients_email"])
		mobiles := stringList(row["recipients_mobile"])
		if len(emails) == 0 && len(mobiles) == 0 {
			return cellNA
		}
		out := strings.Join(emails, ", ")
		if len(mobiles) > 0 {
			out = out + " | " + strings.Join(mobiles, ", ")
		}
		return out
	case "created_by", "createdBy", "updated_by", "updatedBy":
		name := strings.TrimSpace(stringValue(value))
		if name == "" {
			return cellNA
		}
		return name
	case "created_at", "createdAt", "updated_at", "updatedAt":
		if t, ok := value.(time.Time); ok && !t.IsZero() {
			return t.Local().Format("1/2/2006, 3:04:05 PM")
		}
		return cellNA
	default:
		if spec.Formatter != nil {
			return spec.Formatter(value, row)
		}
		if value == nil {
			return cellNA
		}
		if s := strings.TrimSpace(fmt.Sprint(value)); s != "" {
			return s
		}
		return cellNA
	}
}

// dumpDebugCopy persists the buffer alongside logs for non-production
// debugging. Failures are logged, never returned.
func (b Builder) dumpDebugCopy(data []byte, filename string) {
	if errMkdir := os.MkdirAll(b.DebugDir, 0o755); errMkdir != nil {
		log.WithError(errMkdir).Warn("export: create debug dir")
		return
	}
	path := filepath.Join(b.DebugDir, filename)
	if errWrite := os.WriteFile(path, data, 0o644); errWrite != nil {
		log.WithError(errWrite).Warn("export: write debug copy")
		return
	}
	log.Debugf("export: wrote debug copy %s", path)
}

// exportFilename embeds the customer ID and a timestamp with ':' and '.'
// stripped.
func exportFilename(customerID uint64, now time.Time) string {
	stamp := strings.NewReplacer(":", "", ".", "").Replace(now.UTC().Format(time.RFC3339))
	return fmt.Sprintf("alert_rules_%d_%s.xlsx", customerID, stamp)
}

func stringValue(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

func stringOrNA(value any) string {
	if s := strings.TrimSpace(stringValue(value)); s != "" {
		return s
	}
	return cellNA
}

func stringList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func joinOrNA(value any) string {
	items := stringList(value)
	if len(items) == 0 {
		return cellNA
	}
	return strings.Join(items, ", ")
}

func rowID(row Row) int64 {
	switch v := row["id"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
