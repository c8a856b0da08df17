package params

import (
	"context"
	"errors"
	"testing"

	"github.com/mkravets/Freshboard/internal/domain"
)

// fakeLookup — подменный DropdownLookup для тестов.
type fakeLookup struct {
	queries map[int64]*domain.Query
	results map[int64][]string
}

func (f *fakeLookup) GetByID(_ context.Context, id int64) (*domain.Query, error) {
	q, ok := f.queries[id]
	if !ok {
		return nil, errors.New("query not found")
	}
	return q, nil
}

func (f *fakeLookup) ResultValues(_ context.Context, resultID int64) ([]string, error) {
	return f.results[resultID], nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestApply_AllNullValues(t *testing.T) {
	// Все значения nil — текст возвращается без изменений,
	// подстановка не выполняется вовсе
	r := NewResolver(&fakeLookup{})

	defs := []domain.ParameterDef{
		{Name: "region", Type: domain.ParameterText},
		{Name: "limit", Type: domain.ParameterNumber},
	}
	values := map[string]any{"region": nil, "limit": nil}

	text, err := r.Apply(context.Background(), "SELECT * FROM t WHERE r = {{ region }}", defs, values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "SELECT * FROM t WHERE r = {{ region }}" {
		t.Errorf("text should be unchanged, got %q", text)
	}
}

func TestApply_NoValues(t *testing.T) {
	r := NewResolver(&fakeLookup{})

	text, err := r.Apply(context.Background(), "SELECT 1", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "SELECT 1" {
		t.Errorf("expected unchanged text, got %q", text)
	}
}

func TestApply_Substitution(t *testing.T) {
	r := NewResolver(&fakeLookup{})

	tests := []struct {
		name     string
		text     string
		defs     []domain.ParameterDef
		values   map[string]any
		expected string
	}{
		{
			name:     "text parameter",
			text:     "SELECT * FROM events WHERE region = '{{ region }}'",
			defs:     []domain.ParameterDef{{Name: "region", Type: domain.ParameterText}},
			values:   map[string]any{"region": "eu-west"},
			expected: "SELECT * FROM events WHERE region = 'eu-west'",
		},
		{
			name:     "number parameter without spaces",
			text:     "SELECT * FROM events LIMIT {{limit}}",
			defs:     []domain.ParameterDef{{Name: "limit", Type: domain.ParameterNumber}},
			values:   map[string]any{"limit": float64(100)},
			expected: "SELECT * FROM events LIMIT 100",
		},
		{
			name: "date range subkeys",
			text: "WHERE created_at BETWEEN '{{ range.start }}' AND '{{ range.end }}'",
			defs: []domain.ParameterDef{{Name: "range", Type: domain.ParameterDateRange}},
			values: map[string]any{
				"range": map[string]any{"start": "2024-01-01", "end": "2024-01-31"},
			},
			expected: "WHERE created_at BETWEEN '2024-01-01' AND '2024-01-31'",
		},
		{
			name:     "repeated placeholder",
			text:     "SELECT {{ col }}, COUNT({{ col }}) FROM t",
			defs:     []domain.ParameterDef{{Name: "col", Type: domain.ParameterText}},
			values:   map[string]any{"col": "user_id"},
			expected: "SELECT user_id, COUNT(user_id) FROM t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := r.Apply(context.Background(), tt.text, tt.defs, tt.values)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if text != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, text)
			}
		})
	}
}

func TestApply_InvalidValues(t *testing.T) {
	r := NewResolver(&fakeLookup{})

	tests := []struct {
		name   string
		defs   []domain.ParameterDef
		values map[string]any
	}{
		{
			name:   "number gets non-numeric string",
			defs:   []domain.ParameterDef{{Name: "limit", Type: domain.ParameterNumber}},
			values: map[string]any{"limit": "not-a-number"},
		},
		{
			name: "enum value outside options",
			defs: []domain.ParameterDef{
				{Name: "env", Type: domain.ParameterEnum, EnumOptions: []string{"prod", "staging"}},
			},
			values: map[string]any{"env": "dev"},
		},
		{
			name:   "date with wrong format",
			defs:   []domain.ParameterDef{{Name: "day", Type: domain.ParameterDate}},
			values: map[string]any{"day": "31/01/2024"},
		},
		{
			name:   "undeclared parameter name",
			defs:   []domain.ParameterDef{{Name: "region", Type: domain.ParameterText}},
			values: map[string]any{"region": "eu", "extra": "x"},
		},
		{
			name: "nil value among present ones",
			defs: []domain.ParameterDef{
				{Name: "a", Type: domain.ParameterText},
				{Name: "b", Type: domain.ParameterText},
			},
			values: map[string]any{"a": "set", "b": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Apply(context.Background(), "SELECT 1", tt.defs, tt.values)

			var invalid *InvalidParameterError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidParameterError, got %v", err)
			}
			if len(invalid.Names) == 0 {
				t.Error("error should carry offending parameter names")
			}
		})
	}
}

func TestApply_InvalidNamesSorted(t *testing.T) {
	r := NewResolver(&fakeLookup{})

	defs := []domain.ParameterDef{
		{Name: "zeta", Type: domain.ParameterNumber},
		{Name: "alpha", Type: domain.ParameterNumber},
	}
	values := map[string]any{"zeta": "bad", "alpha": "bad"}

	_, err := r.Apply(context.Background(), "SELECT 1", defs, values)

	var invalid *InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidParameterError, got %v", err)
	}
	if len(invalid.Names) != 2 || invalid.Names[0] != "alpha" || invalid.Names[1] != "zeta" {
		t.Errorf("expected sorted names [alpha zeta], got %v", invalid.Names)
	}
}

func TestApply_DropdownValid(t *testing.T) {
	lookup := &fakeLookup{
		queries: map[int64]*domain.Query{
			7: {
				ID:                  7,
				DataSourceID:        int64Ptr(1),
				LatestQueryResultID: int64Ptr(100),
			},
		},
		results: map[int64][]string{
			100: {"eu-west", "us-east"},
		},
	}
	r := NewResolver(lookup)

	defs := []domain.ParameterDef{
		{Name: "region", Type: domain.ParameterQuery, QueryID: int64Ptr(7)},
	}

	text, err := r.Apply(context.Background(),
		"SELECT * FROM t WHERE region = '{{ region }}'",
		defs, map[string]any{"region": "eu-west"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "SELECT * FROM t WHERE region = 'eu-west'" {
		t.Errorf("unexpected text: %q", text)
	}

	// Значение вне результатов dropdown — invalid
	_, err = r.Apply(context.Background(), "SELECT 1", defs, map[string]any{"region": "ap-south"})
	var invalid *InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidParameterError, got %v", err)
	}
}

func TestApply_DetachedDropdown(t *testing.T) {
	// Dropdown-запрос без источника данных — DetachedQueryError с его id
	lookup := &fakeLookup{
		queries: map[int64]*domain.Query{
			42: {ID: 42, DataSourceID: nil},
		},
	}
	r := NewResolver(lookup)

	defs := []domain.ParameterDef{
		{Name: "choice", Type: domain.ParameterQuery, QueryID: int64Ptr(42)},
	}

	_, err := r.Apply(context.Background(), "SELECT 1", defs, map[string]any{"choice": "x"})

	var detached *DetachedQueryError
	if !errors.As(err, &detached) {
		t.Fatalf("expected DetachedQueryError, got %v", err)
	}
	if detached.QueryID != 42 {
		t.Errorf("expected inner query id 42, got %d", detached.QueryID)
	}
}

func TestApply_DropdownWithoutResult(t *testing.T) {
	// Источник есть, но результата ещё нет — допустимых значений нет
	lookup := &fakeLookup{
		queries: map[int64]*domain.Query{
			7: {ID: 7, DataSourceID: int64Ptr(1), LatestQueryResultID: nil},
		},
	}
	r := NewResolver(lookup)

	defs := []domain.ParameterDef{
		{Name: "choice", Type: domain.ParameterQuery, QueryID: int64Ptr(7)},
	}

	_, err := r.Apply(context.Background(), "SELECT 1", defs, map[string]any{"choice": "x"})

	var invalid *InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidParameterError, got %v", err)
	}
}

func TestApply_InfraErrorPropagates(t *testing.T) {
	// Ошибка загрузки dropdown-запроса — не типизированная ошибка резолвинга
	lookup := &fakeLookup{} // queries пуст — GetByID вернёт ошибку
	r := NewResolver(lookup)

	defs := []domain.ParameterDef{
		{Name: "choice", Type: domain.ParameterQuery, QueryID: int64Ptr(9)},
	}

	_, err := r.Apply(context.Background(), "SELECT 1", defs, map[string]any{"choice": "x"})
	if err == nil {
		t.Fatal("expected error")
	}

	var invalid *InvalidParameterError
	var detached *DetachedQueryError
	if errors.As(err, &invalid) || errors.As(err, &detached) {
		t.Errorf("infrastructure error should not be typed, got %v", err)
	}
}
