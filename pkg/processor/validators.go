package processor

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// RequiredFields drops records that are missing (or carry an empty value
// for) any of the configured fields. Dropping is quiet by design: the
// orchestrator reports the per-stage drop count, and a malformed booking
// must never abort the run for everyone else.
type RequiredFields struct {
	fields []string
}

func NewRequiredFields(config map[string]interface{}) (*RequiredFields, error) {
	fields, ok := types.GetStringSlice(config, "fields")
	if !ok || len(fields) == 0 {
		return nil, errors.New("fields list must be specified")
	}
	return &RequiredFields{fields: fields}, nil
}

func (v *RequiredFields) Name() string {
	return "RequiredFields"
}

func (v *RequiredFields) Transform(ctx context.Context, records []types.Record) ([]types.Record, error) {
	out := records[:0]
	dropped := 0
	for _, rec := range records {
		if v.valid(rec) {
			out = append(out, rec)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("[WARN] RequiredFields dropped %d records missing one of %v", dropped, v.fields)
	}
	return out, nil
}

func (v *RequiredFields) valid(rec types.Record) bool {
	for _, field := range v.fields {
		value, ok := rec[field]
		if !ok || value == nil {
			return false
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

// emailPattern is deliberately loose; the goal is catching mangled
// exports ("ana.silva" without a domain), not RFC 5322 compliance.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EmailValidator drops records whose email field does not look like an
// email address.
type EmailValidator struct {
	field string
}

func NewEmailValidator(config map[string]interface{}) (*EmailValidator, error) {
	field, ok := types.GetString(config, "field")
	if !ok {
		field = "email"
	}
	return &EmailValidator{field: field}, nil
}

func (v *EmailValidator) Name() string {
	return "EmailValidator"
}

func (v *EmailValidator) Transform(ctx context.Context, records []types.Record) ([]types.Record, error) {
	out := records[:0]
	dropped := 0
	for _, rec := range records {
		email, _ := rec[v.field].(string)
		if emailPattern.MatchString(email) {
			out = append(out, rec)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("[WARN] EmailValidator dropped %d records with invalid %s", dropped, v.field)
	}
	return out, nil
}
