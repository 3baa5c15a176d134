package dictionary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func art(name, code, category string, active bool, created time.Time) *ExpenseArticle {
	return &ExpenseArticle{
		Base: Base{
			ID:        code,
			Name:      name,
			Code:      code,
			IsActive:  active,
			CreatedAt: created,
			UpdatedAt: created,
		},
		Category:  category,
		OwnerRole: RoleExecutor,
	}
}

func TestFiltersExactAndSubstring(t *testing.T) {
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	items := []Item{
		art("Семена озимые", "111", "ОС", true, created),
		art("Семена яровые", "112", "ТМЦ", false, created),
		art("ГСМ", "140", "ТМЦ", true, created),
	}

	out := Filters{"isActive": true}.Apply(items)
	assert.Len(t, out, 2)

	out = Filters{"category": "ТМЦ"}.Apply(items)
	assert.Len(t, out, 2)

	// category is exact, never substring.
	out = Filters{"category": "ТМ"}.Apply(items)
	assert.Empty(t, out)

	// other string fields match by substring, case-insensitive.
	out = Filters{"name": "семена"}.Apply(items)
	assert.Len(t, out, 2)

	out = Filters{"isActive": true, "category": "ТМЦ"}.Apply(items)
	require.Len(t, out, 1)
	assert.Equal(t, "140", out[0].Meta().Code)

	// empty string and nil values are ignored.
	out = Filters{"category": "", "name": nil}.Apply(items)
	assert.Len(t, out, 3)
}

func TestFiltersDateRange(t *testing.T) {
	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	items := []Item{
		art("Январь", "101", "", true, jan),
		art("Март", "103", "", true, mar),
	}

	out := Filters{"dateRange": DateRange{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}}.Apply(items)
	require.Len(t, out, 1)
	assert.Equal(t, "101", out[0].Meta().Code)
}

func TestFiltersKeyDeterministic(t *testing.T) {
	a := Filters{"isActive": true, "category": "ТМЦ"}
	b := Filters{"category": "ТМЦ", "isActive": true}
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "category:ТМЦ|isActive:true", a.Key())
	assert.Empty(t, Filters{}.Key())
}

func TestSearchMatchesNameAndCode(t *testing.T) {
	created := time.Now()
	items := []Item{
		art("Семена", "110", "", true, created),
		art("ГСМ", "140", "", true, created),
	}

	assert.Len(t, Search(items, "11"), 1)
	assert.Len(t, Search(items, "гсм"), 1)
	assert.Len(t, Search(items, ""), 2)
	assert.Empty(t, Search(items, "nothing"))
}

func TestCalculateStatistics(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	fresh := art("Свежая", "201", "", true, now.Add(-24*time.Hour))
	stale := art("Старая", "202", "", false, now.Add(-30*24*time.Hour))

	stats := CalculateStatistics([]Item{fresh, stale}, now)
	assert.Equal(t, Statistics{
		TotalItems:      2,
		ActiveItems:     1,
		InactiveItems:   1,
		RecentlyUpdated: 1,
	}, stats)

	assert.Equal(t, Statistics{}, CalculateStatistics(nil, now))
}

func TestDecodeItemsPerType(t *testing.T) {
	items, err := DecodeItems(TypePriorities, []byte(`[{"id":"p-1","name":"Срочный","level":1,"color":"#ff0000","isActive":true}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	p, ok := items[0].(*Priority)
	require.True(t, ok)
	assert.Equal(t, 1, p.Level)

	_, err = DecodeItem(Type("bogus"), []byte(`{}`))
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("vat-rates")
	require.NoError(t, err)
	assert.Equal(t, TypeVatRates, typ)
	assert.True(t, typ.HasEndpoint())
	assert.False(t, typ.ReadOnly())

	assert.True(t, TypeCurrencies.ReadOnly())
	assert.False(t, TypeContracts.HasEndpoint())

	_, err = ParseType("unknown")
	assert.Error(t, err)
}
