package processor

import (
	"context"
	"strings"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// FieldCleaner normalizes string fields: whitespace is always trimmed,
// and fields listed under title_case / lower_case / upper_case get their
// casing fixed. Customer names arrive as "  ana silva " and emails as
// "Ana.Silva@Example.COM" often enough for this to be the first stage of
// every booking pipeline.
type FieldCleaner struct {
	titleCase map[string]bool
	lowerCase map[string]bool
	upperCase map[string]bool
}

func NewFieldCleaner(config map[string]interface{}) (*FieldCleaner, error) {
	c := &FieldCleaner{
		titleCase: fieldSet(config, "title_case"),
		lowerCase: fieldSet(config, "lower_case"),
		upperCase: fieldSet(config, "upper_case"),
	}
	return c, nil
}

func fieldSet(config map[string]interface{}, key string) map[string]bool {
	set := make(map[string]bool)
	if fields, ok := types.GetStringSlice(config, key); ok {
		for _, f := range fields {
			set[f] = true
		}
	}
	return set
}

func (c *FieldCleaner) Name() string {
	return "FieldCleaner"
}

func (c *FieldCleaner) Transform(ctx context.Context, records []types.Record) ([]types.Record, error) {
	for _, rec := range records {
		for field, value := range rec {
			s, ok := value.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			switch {
			case c.titleCase[field]:
				s = titleCase(s)
			case c.lowerCase[field]:
				s = strings.ToLower(s)
			case c.upperCase[field]:
				s = strings.ToUpper(s)
			}
			rec[field] = s
		}
	}
	return records, nil
}

// titleCase upper-cases the first letter of each word. strings.Title is
// deprecated and x/text casing is overkill for ASCII-ish names.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(words, " ")
}
