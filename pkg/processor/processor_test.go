package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

func TestFieldCleaner(t *testing.T) {
	cleaner, err := NewFieldCleaner(map[string]interface{}{
		"title_case": []interface{}{"name", "city"},
		"lower_case": []interface{}{"email"},
	})
	require.NoError(t, err)

	records := []types.Record{
		{"name": "  ana silva ", "email": " Ana.Silva@Example.COM", "city": "sÃO paulo", "age": int64(30)},
	}
	out, err := cleaner.Transform(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "Ana Silva", out[0]["name"])
	assert.Equal(t, "ana.silva@example.com", out[0]["email"])
	assert.Equal(t, int64(30), out[0]["age"], "non-string fields are untouched")
}

func TestTypeConverter(t *testing.T) {
	conv, err := NewTypeConverter(map[string]interface{}{
		"fields": map[interface{}]interface{}{
			"booking_id": "int",
			"price":      "float",
			"checkin":    "datetime",
		},
	})
	require.NoError(t, err)

	records := []types.Record{
		{"booking_id": "42", "price": "199.90", "checkin": "2024-11-02T14:00:00Z"},
	}
	out, err := conv.Transform(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, int64(42), out[0]["booking_id"])
	assert.Equal(t, 199.90, out[0]["price"])
	checkin, ok := out[0]["checkin"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2024, checkin.Year())
}

func TestTypeConverterFailureIsFatal(t *testing.T) {
	conv, err := NewTypeConverter(map[string]interface{}{
		"fields": map[interface{}]interface{}{"booking_id": "int"},
	})
	require.NoError(t, err)

	_, err = conv.Transform(context.Background(), []types.Record{{"booking_id": "not-a-number"}})
	assert.Error(t, err)
}

func TestTypeConverterRejectsUnknownType(t *testing.T) {
	_, err := NewTypeConverter(map[string]interface{}{
		"fields": map[interface{}]interface{}{"booking_id": "uuid"},
	})
	assert.Error(t, err)
}

func TestRequiredFields(t *testing.T) {
	v, err := NewRequiredFields(map[string]interface{}{
		"fields": []interface{}{"booking_id", "customer"},
	})
	require.NoError(t, err)

	records := []types.Record{
		{"booking_id": int64(1), "customer": "Ana"},
		{"booking_id": int64(2), "customer": "   "},
		{"booking_id": int64(3)},
		{"booking_id": int64(4), "customer": "Joao"},
	}
	out, err := v.Transform(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0]["booking_id"])
	assert.Equal(t, int64(4), out[1]["booking_id"])
}

func TestEmailValidator(t *testing.T) {
	v, err := NewEmailValidator(map[string]interface{}{})
	require.NoError(t, err)

	tests := []struct {
		email string
		kept  bool
	}{
		{"ana.silva@example.com", true},
		{"joao@trilha.com.br", true},
		{"no-domain", false},
		{"two@@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			out, err := v.Transform(context.Background(), []types.Record{{"email": tt.email}})
			require.NoError(t, err)
			assert.Equal(t, tt.kept, len(out) == 1)
		})
	}
}

func TestDeduplicateKeepsLast(t *testing.T) {
	d, err := NewDeduplicate(map[string]interface{}{"field": "booking_id"})
	require.NoError(t, err)

	records := []types.Record{
		{"booking_id": int64(1), "status": "pending"},
		{"booking_id": int64(2), "status": "confirmed"},
		{"booking_id": int64(1), "status": "confirmed"},
	}
	out, err := d.Transform(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "confirmed", out[0]["status"], "last occurrence wins, original position kept")
	assert.Equal(t, int64(2), out[1]["booking_id"])
}

func TestDeduplicateAcceptsKeyFieldAlias(t *testing.T) {
	d, err := NewDeduplicate(map[string]interface{}{"key_field": "booking_id"})
	require.NoError(t, err)
	assert.Equal(t, "booking_id", d.field)

	_, err = NewDeduplicate(map[string]interface{}{})
	assert.Error(t, err)
}

func TestAddMetadata(t *testing.T) {
	a, err := NewAddMetadata(map[string]interface{}{"pipeline": "bookings"})
	require.NoError(t, err)
	fixed := time.Date(2024, 11, 2, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	out, err := a.Transform(context.Background(), []types.Record{{"booking_id": int64(1)}})
	require.NoError(t, err)
	assert.Equal(t, "2024-11-02T12:00:00Z", out[0]["processed_at"])
	assert.Equal(t, "bookings", out[0]["pipeline"])
}

func TestFactory(t *testing.T) {
	tests := []struct {
		cfgType string
		config  map[string]interface{}
		wantErr bool
	}{
		{"FieldCleaner", map[string]interface{}{}, false},
		{"Deduplicate", map[string]interface{}{"field": "id"}, false},
		{"RequiredFields", map[string]interface{}{"fields": []interface{}{"id"}}, false},
		{"EmailValidator", map[string]interface{}{}, false},
		{"AddMetadata", map[string]interface{}{}, false},
		{"Nope", map[string]interface{}{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.cfgType, func(t *testing.T) {
			_, err := New(types.ProcessorConfig{Type: tt.cfgType, Config: tt.config})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
