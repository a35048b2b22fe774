package models

import (
	"strings"
	"time"
)

// MealType is the closed set of meal categories a recipe can belong to.
type MealType string

// MealType enum values.
const (
	MealTypeBreakfast  MealType = "BREAKFAST"
	MealTypeBrunch     MealType = "BRUNCH"
	MealTypeLunch      MealType = "LUNCH"
	MealTypeDinner     MealType = "DINNER"
	MealTypeSnack      MealType = "SNACK"
	MealTypeAppetizer  MealType = "APPETIZER"
	MealTypeMainCourse MealType = "MAIN_COURSE"
	MealTypeSideDish   MealType = "SIDE_DISH"
	MealTypeSalad      MealType = "SALAD"
	MealTypeSoup       MealType = "SOUP"
	MealTypeDessert    MealType = "DESSERT"
	MealTypeBeverage   MealType = "BEVERAGE"
)

var mealTypes = []MealType{
	MealTypeBreakfast,
	MealTypeBrunch,
	MealTypeLunch,
	MealTypeDinner,
	MealTypeSnack,
	MealTypeAppetizer,
	MealTypeMainCourse,
	MealTypeSideDish,
	MealTypeSalad,
	MealTypeSoup,
	MealTypeDessert,
	MealTypeBeverage,
}

// MealTypes returns every meal type in declaration order.
func MealTypes() []MealType {
	out := make([]MealType, len(mealTypes))
	copy(out, mealTypes)
	return out
}

// MealTypeNames returns the meal types as plain strings.
func MealTypeNames() []string {
	names := make([]string, len(mealTypes))
	for i, m := range mealTypes {
		names[i] = string(m)
	}
	return names
}

// Valid reports whether m is one of the known meal types.
func (m MealType) Valid() bool {
	for _, known := range mealTypes {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMealType accepts loosely formatted input such as "main course" or
// "Side-Dish".
func ParseMealType(s string) (MealType, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	m := MealType(norm)
	return m, m.Valid()
}

// DateFilter narrows browse results to a creation window.
type DateFilter string

// DateFilter enum values.
const (
	DateFilterAll       DateFilter = "ALL"
	DateFilterToday     DateFilter = "TODAY"
	DateFilterThisWeek  DateFilter = "THIS_WEEK"
	DateFilterThisMonth DateFilter = "THIS_MONTH"
)

// DateFilters returns every date filter.
func DateFilters() []DateFilter {
	return []DateFilter{DateFilterAll, DateFilterToday, DateFilterThisWeek, DateFilterThisMonth}
}

// ParseDateFilter parses a date filter name case-insensitively.
func ParseDateFilter(s string) (DateFilter, bool) {
	f := DateFilter(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case DateFilterAll, DateFilterToday, DateFilterThisWeek, DateFilterThisMonth:
		return f, true
	}
	return "", false
}

// Range returns the half-open [from, to) window for the filter relative to
// now. Both are nil for DateFilterAll. Weeks start on Monday.
func (f DateFilter) Range(now time.Time) (from, to *time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var start, end time.Time
	switch f {
	case DateFilterToday:
		start, end = day, day.AddDate(0, 0, 1)
	case DateFilterThisWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 7)
	case DateFilterThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)
	default:
		return nil, nil
	}
	return &start, &end
}
