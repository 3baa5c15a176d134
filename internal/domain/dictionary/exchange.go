package dictionary

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"refbook/internal/core/apperror"
)

// csvColumns are the exported top-level fields per type, in column order.
// The same set drives import templates.
var csvColumns = map[Type][]string{
	TypeExpenseArticles: {"id", "name", "code", "description", "ownerRole", "category", "isActive"},
	TypeCounterparties:  {"id", "name", "binIin", "category", "description", "isActive"},
	TypeContracts:       {"id", "name", "contractNumber", "counterpartyId", "startDate", "endDate", "amount", "currency", "isActive"},
	TypeNormatives:      {"id", "name", "expenseArticleId", "maxAmount", "period", "isActive"},
	TypePriorities:      {"id", "name", "level", "color", "isActive"},
	TypeUsers:           {"id", "name", "email", "fullName", "roles", "isActive"},
	TypeCurrencies:      {"id", "name", "code", "symbol", "scale", "isActive"},
	TypeVatRates:        {"id", "name", "rate", "isActive"},
}

// ExportFilename names an export document after its type and date.
func ExportFilename(t Type, format ExportFormat) string {
	return fmt.Sprintf("%s-%s.%s", t, time.Now().UTC().Format("2006-01-02"), formatExt(format))
}

// TemplateFilename names an import template document.
func TemplateFilename(t Type, format ExportFormat) string {
	return fmt.Sprintf("%s-template.%s", t, formatExt(format))
}

func formatExt(format ExportFormat) string {
	if format == "" {
		return string(FormatCSV)
	}
	return string(format)
}

// Export produces a downloadable document. Online the backend exporter is
// preferred; when it fails, or offline, the document is rendered locally
// from whatever data is reachable. CSV and JSON render locally; XLSX only
// comes from the backend.
func (s *Service) Export(ctx context.Context, t Type, opts ExportOptions) (*ExportResult, error) {
	switch opts.Format {
	case FormatCSV, FormatJSON, FormatXLSX, "":
	default:
		return nil, apperror.NewValidation(fmt.Sprintf("unknown export format: %q", opts.Format))
	}

	if s.online() {
		out, err := s.upstream.Export(ctx, t, opts)
		if err == nil {
			return out, nil
		}
		s.log.WithContext(ctx).Warnw("backend export failed, rendering locally",
			"type", t, "format", opts.Format, "error", err)
	}
	return s.exportLocal(ctx, t, opts)
}

func (s *Service) exportLocal(ctx context.Context, t Type, opts ExportOptions) (*ExportResult, error) {
	items := s.GetItems(ctx, t)
	if opts.ActiveOnly {
		filtered := make([]Item, 0, len(items))
		for _, item := range items {
			if item.Meta().IsActive {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	switch opts.Format {
	case FormatJSON:
		content, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("encode export: %w", err))
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/json",
			Filename:    ExportFilename(t, FormatJSON),
		}, nil
	case FormatCSV, "":
		content, err := encodeCSV(t, items)
		if err != nil {
			return nil, apperror.NewInternal(err)
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv; charset=utf-8",
			Filename:    ExportFilename(t, FormatCSV),
		}, nil
	default:
		return nil, apperror.NewNotSupported(string(t), "export to "+string(opts.Format))
	}
}

// Template produces an empty import template with the column headers.
// Online the backend template is preferred; local rendering covers the rest.
func (s *Service) Template(ctx context.Context, t Type, format ExportFormat) (*ExportResult, error) {
	if s.online() {
		out, err := s.upstream.Template(ctx, t, format)
		if err == nil {
			return out, nil
		}
		s.log.WithContext(ctx).Warnw("backend template failed, rendering locally",
			"type", t, "format", format, "error", err)
	}

	columns, ok := csvColumns[t]
	if !ok {
		return nil, apperror.NewNotSupported(string(t), "template")
	}
	switch format {
	case FormatCSV, "":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(columns); err != nil {
			return nil, apperror.NewInternal(err)
		}
		w.Flush()
		return &ExportResult{
			Content:     buf.Bytes(),
			ContentType: "text/csv; charset=utf-8",
			Filename:    TemplateFilename(t, FormatCSV),
		}, nil
	case FormatJSON:
		example := map[string]any{}
		for _, col := range columns {
			example[col] = ""
		}
		content, err := json.MarshalIndent([]map[string]any{example}, "", "  ")
		if err != nil {
			return nil, apperror.NewInternal(err)
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/json",
			Filename:    TemplateFilename(t, FormatJSON),
		}, nil
	default:
		return nil, apperror.NewValidation(fmt.Sprintf("unknown template format: %q", format))
	}
}

// Import feeds an uploaded document to the backend importer. When the
// backend has no import route, the file is parsed here and fed to the bulk
// creator. Offline import is unsupported and reports an empty result.
func (s *Service) Import(ctx context.Context, t Type, filename string, content []byte) (*ImportResult, error) {
	if !s.online() {
		return &ImportResult{}, nil
	}

	res, err := s.upstream.Import(ctx, t, filename, content)
	if err == nil {
		s.invalidateType(t)
		return &res, nil
	}
	if !upstreamRouteMissing(err) {
		return nil, err
	}
	return s.importLocal(ctx, t, filename, content)
}

func (s *Service) importLocal(ctx context.Context, t Type, filename string, content []byte) (*ImportResult, error) {
	var (
		items []Item
		err   error
	)
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".json"):
		items, err = DecodeItems(t, content)
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		items, err = decodeCSV(t, content)
	default:
		return nil, apperror.NewValidation(fmt.Sprintf("unsupported import file: %q", filename))
	}
	if err != nil {
		return nil, apperror.NewValidation(fmt.Sprintf("parse import file: %v", err))
	}

	res := s.BulkCreate(ctx, t, items)
	return &ImportResult{
		SuccessCount: res.SuccessCount,
		ErrorCount:   res.ErrorCount,
		Errors:       res.Errors,
		Items:        res.Items,
	}, nil
}

// upstreamRouteMissing reports whether the backend answered 404 or 405,
// meaning it does not serve the route at all.
func upstreamRouteMissing(err error) bool {
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeUpstream {
		return false
	}
	status, ok := appErr.Details["status"].(int)
	return ok && (status == 404 || status == 405)
}

func encodeCSV(t Type, items []Item) ([]byte, error) {
	columns, ok := csvColumns[t]
	if !ok {
		return nil, fmt.Errorf("no export columns for type %s", t)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, item := range items {
		fields := itemFields(item)
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = csvValue(fields[col])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func csvValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ";")
	default:
		raw, _ := json.Marshal(val)
		return string(raw)
	}
}

func decodeCSV(t Type, content []byte) ([]Item, error) {
	r := csv.NewReader(bytes.NewReader(content))
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv")
	}
	header := records[0]
	items := make([]Item, 0, len(records)-1)
	for _, record := range records[1:] {
		fields := map[string]any{}
		for i, col := range header {
			if i >= len(record) {
				break
			}
			// Blank cells are omitted so typed fields keep their zero
			// values instead of choking on JSON null.
			if v := csvField(col, record[i]); v != nil {
				fields[col] = v
			}
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		item, err := DecodeItem(t, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// csvField coerces a csv cell into the JSON shape the item expects.
func csvField(col, value string) any {
	switch col {
	case "isActive":
		return value == "" || strings.EqualFold(value, "true") || value == "1"
	case "level", "scale", "version":
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		return value
	case "rate", "amount", "maxAmount":
		if value == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		return value
	case "roles":
		if value == "" {
			return nil
		}
		return strings.Split(value, ";")
	default:
		if value == "" {
			return nil
		}
		return value
	}
}
