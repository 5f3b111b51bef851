package orm

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Insert(t *testing.T) {
	m := newPostModel(t)

	got, err := m.Validate(map[string]any{"title": "hello", "meta": map[string]any{"tags": []string{"go"}}}, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"title":    "hello",
		"isPublic": false,
		"status":   "draft",
		"views":    int64(0),
		"meta":     `{"tags":["go"]}`,
	}, got)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		insert bool
		field  string
		reason string
	}{
		{"unknown field", map[string]any{"rating": 5}, false, "rating", "unknown field"},
		{"null on non-nullable", map[string]any{"title": nil}, false, "title", "must not be null"},
		{"too long", map[string]any{"title": string(make([]rune, 81))}, false, "title", "longer than 80"},
		{"enum membership", map[string]any{"status": "archived"}, false, "status", "must be one of"},
		{"bool type", map[string]any{"isPublic": "yes"}, false, "isPublic", "expected a bool"},
		{"integer type", map[string]any{"views": 1.5}, false, "views", "expected an integer"},
		{"unsigned overflow", map[string]any{"views": uint64(math.MaxUint64)}, false, "views", "out of range"},
		{"float overflow", map[string]any{"views": 1e19}, false, "views", "out of range"},
		{"string type", map[string]any{"title": 3}, false, "title", "expected a string"},
		{"invalid json", map[string]any{"meta": "{"}, false, "meta", "not valid JSON"},
		{"missing required", map[string]any{}, true, "title", "is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPostModel(t).Validate(tt.values, tt.insert)
			require.Error(t, err)

			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Contains(t, vErr.Reason, tt.reason)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestValidate_UpdateDoesNotRequireFields(t *testing.T) {
	got, err := newPostModel(t).Validate(map[string]any{"views": float64(12), "authorID": nil}, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"views": int64(12), "authorID": nil}, got)
}

func TestConvertValue(t *testing.T) {
	id := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	tests := []struct {
		name string
		col  core.Column
		in   any
		want any
	}{
		{"uuid value", core.Column{Type: core.TypeUUID}, id, id.String()},
		{"uuid string", core.Column{Type: core.TypeUUID}, "7C9E6679-7425-40DE-944B-E07FC1F90AE7", id.String()},
		{"time", core.Column{Type: core.TypeTimestamp}, ts, ts.UTC()},
		{"rfc3339", core.Column{Type: core.TypeTimestamp}, "2024-05-01T10:00:00Z", ts.UTC()},
		{"float from int", core.Column{Type: core.TypeFloating}, 3, float64(3)},
		{"float32", core.Column{Type: core.TypeFloating}, float32(0.5), 0.5},
		{"big integer", core.Column{Type: core.TypeBigInteger}, int32(7), int64(7)},
		{"char", core.Column{Type: core.TypeChar, MaxLength: 2}, "ab", "ab"},
		{"raw json", core.Column{Type: core.TypeJSON}, json.RawMessage(`[1]`), "[1]"},
		{"json string", core.Column{Type: core.TypeJSON}, `{"a":1}`, `{"a":1}`},
		{"nullable nil", core.Column{Type: core.TypeText, Nullable: true}, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertValue("f", tt.col, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := convertValue("f", core.Column{Type: core.TypeUUID}, "not-a-uuid")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = convertValue("f", core.Column{Type: core.TypeTimestamp}, "yesterday")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr error
	}{
		{"int", 42, 42, nil},
		{"negative int8", int8(-3), -3, nil},
		{"max uint64 within range", uint64(math.MaxInt64), math.MaxInt64, nil},
		{"uint64 past max", uint64(math.MaxInt64) + 1, 0, errIntRange},
		{"uint past max", uint(math.MaxUint), 0, errIntRange},
		{"whole float", 12.0, 12, nil},
		{"fractional float", 1.5, 0, errNotInteger},
		{"float 2^63", math.Pow(2, 63), 0, errIntRange},
		{"min int64 float", float64(math.MinInt64), math.MinInt64, nil},
		{"string", "12", 0, errNotInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toInt64(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLimit_RejectsUnsignedOverflow(t *testing.T) {
	q := NewQuery(newPostModel(t)).Limit(10)
	q.verb(OpLimit, []any{uint64(math.MaxUint64)})

	require.Error(t, q.Err())
	assert.Contains(t, q.Err().Error(), "non-negative integer")
}
