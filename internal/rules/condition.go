// Package rules implements user-defined cleanup rules: typed conditions,
// the AND/OR expression chain, rule records, and their actions.
package rules

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/vmunix/prunarr/internal/media"
)

// Field is an attribute of a media item a condition can test.
type Field string

const (
	FieldWatched          Field = "watched"
	FieldMonitored        Field = "monitored"
	FieldHasActiveRequest Field = "has_active_request"
	FieldOnWatchlist      Field = "on_watchlist"

	FieldViewCount        Field = "view_count"
	FieldDaysSinceWatched Field = "days_since_watched"
	FieldDaysSinceAdded   Field = "days_since_added"
	FieldRating           Field = "rating"
	FieldFileSizeGB       Field = "file_size_gb"

	FieldTitle         Field = "title"
	FieldGenre         Field = "genre"
	FieldContentRating Field = "content_rating"
)

// FieldType is the value domain of a field.
type FieldType string

const (
	TypeBool   FieldType = "bool"
	TypeNumber FieldType = "number"
	TypeText   FieldType = "text"
)

// fieldTypes maps every known field to its type. A field missing from this
// table is unknown and its conditions evaluate false.
var fieldTypes = map[Field]FieldType{
	FieldWatched:          TypeBool,
	FieldMonitored:        TypeBool,
	FieldHasActiveRequest: TypeBool,
	FieldOnWatchlist:      TypeBool,
	FieldViewCount:        TypeNumber,
	FieldDaysSinceWatched: TypeNumber,
	FieldDaysSinceAdded:   TypeNumber,
	FieldRating:           TypeNumber,
	FieldFileSizeGB:       TypeNumber,
	FieldTitle:            TypeText,
	FieldGenre:            TypeText,
	FieldContentRating:    TypeText,
}

// Type returns the field's value type, or false for unknown fields.
func (f Field) Type() (FieldType, bool) {
	t, ok := fieldTypes[f]
	return t, ok
}

// Operator compares a field value against the condition value.
type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpGreaterThan    Operator = "greater_than"
	OpLessThan       Operator = "less_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessOrEqual    Operator = "less_or_equal"
	OpContains       Operator = "contains"
	OpNotContains    Operator = "not_contains"
)

// operatorsByType constrains the operator set per field type.
var operatorsByType = map[FieldType][]Operator{
	TypeBool:   {OpEquals},
	TypeNumber: {OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual},
	TypeText:   {OpEquals, OpNotEquals, OpContains, OpNotContains},
}

// allowedFor reports whether op is valid for fields of type t.
func (op Operator) allowedFor(t FieldType) bool {
	for _, o := range operatorsByType[t] {
		if o == op {
			return true
		}
	}
	return false
}

// Join combines a condition with the next one in the chain.
type Join string

const (
	JoinAnd Join = "and"
	JoinOr  Join = "or"
)

// Condition is one typed predicate. Join describes how it combines with the
// next condition in the expression; the last condition's join is ignored.
type Condition struct {
	Field Field    `json:"field"`
	Op    Operator `json:"operator"`
	Value string   `json:"value"`
	Join  Join     `json:"join,omitempty"`
}

// absentDays is the numeric reading of a "days since" field when the
// underlying timestamp is absent: never-watched compares as infinitely old.
const absentDays = 1e12

var fold = cases.Fold()

// Eval evaluates the condition against one media item snapshot.
//
// Malformed conditions (unknown field, operator not valid for the field's
// type, unparseable value) evaluate false rather than failing the sweep.
func (c Condition) Eval(item *media.Item, now time.Time) bool {
	t, ok := c.Field.Type()
	if !ok || !c.Op.allowedFor(t) {
		return false
	}

	switch t {
	case TypeBool:
		want, err := strconv.ParseBool(c.Value)
		if err != nil {
			return false
		}
		return boolField(c.Field, item) == want

	case TypeNumber:
		threshold, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return false
		}
		return compareNumber(numberField(c.Field, item, now), c.Op, threshold)

	case TypeText:
		return matchText(textValues(c.Field, item), c.Op, c.Value)
	}
	return false
}

func boolField(f Field, item *media.Item) bool {
	switch f {
	case FieldWatched:
		return item.Watched
	case FieldMonitored:
		return item.Monitored
	case FieldHasActiveRequest:
		return item.HasActiveRequest
	case FieldOnWatchlist:
		return item.OnWatchlist
	}
	return false
}

func numberField(f Field, item *media.Item, now time.Time) float64 {
	switch f {
	case FieldViewCount:
		return float64(item.ViewCount)
	case FieldDaysSinceWatched:
		days, ok := item.DaysSinceWatched(now)
		if !ok {
			return absentDays
		}
		return days
	case FieldDaysSinceAdded:
		return item.DaysSinceAdded(now)
	case FieldRating:
		return item.Rating
	case FieldFileSizeGB:
		return float64(item.FileSizeBytes) / (1024 * 1024 * 1024)
	}
	return 0
}

func compareNumber(got float64, op Operator, want float64) bool {
	switch op {
	case OpEquals:
		return got == want
	case OpNotEquals:
		return got != want
	case OpGreaterThan:
		return got > want
	case OpLessThan:
		return got < want
	case OpGreaterOrEqual:
		return got >= want
	case OpLessOrEqual:
		return got <= want
	}
	return false
}

// textValues returns the candidate strings for a text field. Genre is a set:
// the condition matches if any member matches.
func textValues(f Field, item *media.Item) []string {
	switch f {
	case FieldTitle:
		return []string{item.Title}
	case FieldGenre:
		return item.Genres
	case FieldContentRating:
		return []string{item.ContentRating}
	}
	return nil
}

func matchText(values []string, op Operator, want string) bool {
	want = fold.String(want)
	anyEquals := false
	anyContains := false
	for _, v := range values {
		v = fold.String(v)
		if v == want {
			anyEquals = true
		}
		if strings.Contains(v, want) {
			anyContains = true
		}
	}
	switch op {
	case OpEquals:
		return anyEquals
	case OpNotEquals:
		return !anyEquals
	case OpContains:
		return anyContains
	case OpNotContains:
		return !anyContains
	}
	return false
}

// Validate rejects malformed conditions at submit time. Runtime evaluation
// fails closed instead, but rules should never be accepted broken.
func (c Condition) Validate(isLast bool) []string {
	var errs []string

	t, ok := c.Field.Type()
	if !ok {
		errs = append(errs, "unknown field "+strconv.Quote(string(c.Field)))
		return errs
	}
	if !c.Op.allowedFor(t) {
		errs = append(errs, "operator "+string(c.Op)+" not valid for "+string(t)+" field "+string(c.Field))
	}
	switch t {
	case TypeBool:
		if _, err := strconv.ParseBool(c.Value); err != nil {
			errs = append(errs, "field "+string(c.Field)+": value must be true or false")
		}
	case TypeNumber:
		if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
			errs = append(errs, "field "+string(c.Field)+": value must be numeric")
		}
	}
	if !isLast && c.Join != JoinAnd && c.Join != JoinOr {
		errs = append(errs, "join must be and/or between conditions")
	}
	return errs
}
