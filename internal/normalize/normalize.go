// Package normalize converts raw scraper items into canonical records.
//
// Each canonical field has a row in a static table naming its formatter
// category and, per source, the ordered raw keys it may be read from. The
// first present, non-empty key wins. Formatting never fails: values that
// cannot be interpreted become "".
package normalize

import (
	"strings"

	"github.com/sells-group/lead-scraper/internal/model"
)

// Resolve returns the raw value for f from raw, probing the source's alias
// list in order. Fields without aliases are looked up by their own name.
func Resolve(src model.Source, raw model.RawRecord, f model.Field) any {
	keys := Aliases(src, f)
	if keys == nil {
		return raw[string(f)]
	}
	for _, k := range keys {
		if v, ok := raw[k]; ok && truthy(v) {
			return v
		}
	}
	return nil
}

// Normalize resolves and formats a single field of a raw record.
func Normalize(src model.Source, raw model.RawRecord, f model.Field) string {
	return Format(f, Resolve(src, raw, f))
}

// Format applies f's formatter to a raw value.
func Format(f model.Field, v any) string {
	spec, ok := table[f]
	if !ok {
		spec = fieldSpec{category: CategoryText}
	}

	switch spec.category {
	case CategoryRating:
		return FormatRating(v)
	case CategoryCount:
		return FormatCount(v)
	case CategoryHours:
		return FormatHours(v)
	case CategoryPriceLevel:
		return FormatPriceLevel(v)
	case CategoryCoordinates:
		return FormatCoordinates(v)
	}

	switch spec.category {
	case CategoryEmail, CategoryPhone, CategoryURL, CategoryMapsURL:
		v = scalar(v)
	}
	if !truthy(v) {
		return ""
	}
	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return ""
	}

	switch spec.category {
	case CategoryEmail:
		return FormatEmail(s)
	case CategoryPhone:
		return FormatPhone(s)
	case CategoryURL:
		return FormatURL(s, spec.accept)
	case CategoryMapsURL:
		return FormatURL(s, nil)
	case CategoryLocation:
		return FormatLocation(s)
	case CategoryName:
		return FormatName(s)
	case CategoryVerbatim:
		return s
	default:
		return FormatText(s)
	}
}

// NormalizeRecord formats every requested field of raw. The result always
// holds a key for each field.
func NormalizeRecord(src model.Source, raw model.RawRecord, fields []model.Field) model.Record {
	rec := make(model.Record, len(fields))
	for _, f := range fields {
		rec[f] = Normalize(src, raw, f)
	}
	return rec
}

// Keep reports whether rec has at least one non-blank value.
func Keep(rec model.Record) bool {
	return !rec.Blank()
}

// Records normalizes raw items and drops the blank results, preserving order.
func Records(src model.Source, items []model.RawRecord, fields []model.Field) []model.Record {
	out := make([]model.Record, 0, len(items))
	for _, item := range items {
		rec := NormalizeRecord(src, item, fields)
		if Keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

var controlReplacer = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

// Clean strips line breaks and tabs, collapses repeated whitespace, and drops
// records left blank. The input records are not modified.
func Clean(records []model.Record) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		cleaned := make(model.Record, len(rec))
		for f, v := range rec {
			cleaned[f] = strings.Join(strings.Fields(controlReplacer.Replace(v)), " ")
		}
		if Keep(cleaned) {
			out = append(out, cleaned)
		}
	}
	return out
}
