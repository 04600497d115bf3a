package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Saturday, June 15th 2024, noon UTC.
var testReference = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestTemporalParser() *TemporalParser {
	return NewTemporalParser(WithReferenceTime(testReference))
}

func TestParseRelativeExpressions(t *testing.T) {
	parser := newTestTemporalParser()

	t.Run("last month is the previous calendar month", func(t *testing.T) {
		expr := parser.Parse("receipts from last month")
		require.NotNil(t, expr)
		assert.Equal(t, TemporalRelative, expr.Kind)
		assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), *expr.Start)
		assert.Equal(t, time.May, expr.End.Month())
		assert.Equal(t, 31, expr.End.Day())
	})

	t.Run("this week starts on Monday", func(t *testing.T) {
		expr := parser.Parse("invoices this week")
		require.NotNil(t, expr)
		assert.Equal(t, time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), *expr.Start)
		assert.Equal(t, 16, expr.End.Day())
	})

	t.Run("yesterday", func(t *testing.T) {
		expr := parser.Parse("what did I buy yesterday")
		require.NotNil(t, expr)
		assert.Equal(t, 14, expr.Start.Day())
		assert.Equal(t, 14, expr.End.Day())
	})

	t.Run("tomorrow", func(t *testing.T) {
		expr := parser.Parse("tomorrow")
		require.NotNil(t, expr)
		assert.Equal(t, TemporalRelative, expr.Kind)
		assert.Equal(t, 16, expr.Start.Day())
		assert.Equal(t, 16, expr.End.Day())
	})

	t.Run("next week is the following calendar week", func(t *testing.T) {
		expr := parser.Parse("receipts for next week")
		require.NotNil(t, expr)
		assert.Equal(t, time.Date(2024, time.June, 17, 0, 0, 0, 0, time.UTC), *expr.Start)
		assert.Equal(t, 23, expr.End.Day())
	})

	t.Run("next month is the following calendar month", func(t *testing.T) {
		expr := parser.Parse("invoices next month")
		require.NotNil(t, expr)
		assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), *expr.Start)
		assert.Equal(t, time.July, expr.End.Month())
		assert.Equal(t, 31, expr.End.Day())
	})

	t.Run("days ago window", func(t *testing.T) {
		expr := parser.Parse("receipts 3 days ago")
		require.NotNil(t, expr)
		assert.Equal(t, TemporalRelative, expr.Kind)
		assert.Equal(t, 12, expr.Start.Day())
		assert.Equal(t, 15, expr.End.Day())
	})

	t.Run("hebrew last week", func(t *testing.T) {
		expr := parser.Parse("קבלות משבוע שעבר")
		require.NotNil(t, expr)
		assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), *expr.Start)
	})
}

func TestParseCountExpressions(t *testing.T) {
	parser := newTestTemporalParser()

	t.Run("count of documents", func(t *testing.T) {
		expr := parser.Parse("last 5 receipts")
		require.NotNil(t, expr)
		assert.Equal(t, TemporalCount, expr.Kind)
		assert.Equal(t, 5, expr.Count)
		assert.Equal(t, "receipt", expr.DocumentType)
		assert.Equal(t, DirectionPast, expr.Direction)
		assert.Nil(t, expr.Start)
	})

	t.Run("count of units gets a window", func(t *testing.T) {
		expr := parser.Parse("past 3 months")
		require.NotNil(t, expr)
		assert.Equal(t, TemporalCount, expr.Kind)
		assert.Equal(t, "month", expr.Unit)
		require.NotNil(t, expr.Start)
		assert.Equal(t, time.March, expr.Start.Month())
		assert.Equal(t, testReference, *expr.End)
	})

	t.Run("unknown noun is not temporal", func(t *testing.T) {
		assert.Nil(t, parser.Parse("last 5 gadgets"))
	})
}

func TestParseQuarterExpressions(t *testing.T) {
	parser := newTestTemporalParser()

	t.Run("short form with year", func(t *testing.T) {
		expr := parser.Parse("expenses in Q3 2023")
		require.NotNil(t, expr)
		assert.Equal(t, TemporalQuarter, expr.Kind)
		assert.Equal(t, time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC), *expr.Start)
		assert.Equal(t, time.September, expr.End.Month())
	})

	t.Run("long form defaults to reference year", func(t *testing.T) {
		expr := parser.Parse("first quarter invoices")
		require.NotNil(t, expr)
		assert.Equal(t, 2024, expr.Start.Year())
		assert.Equal(t, time.January, expr.Start.Month())
	})

	t.Run("last quarter wraps the year", func(t *testing.T) {
		ref := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
		expr := NewTemporalParser(WithReferenceTime(ref)).Parse("last quarter")
		require.NotNil(t, expr)
		assert.Equal(t, 2023, expr.Start.Year())
		assert.Equal(t, time.October, expr.Start.Month())
	})
}

func TestParseExplicitRange(t *testing.T) {
	parser := newTestTemporalParser()

	expr := parser.Parse("receipts from 25/12/2023 to 28/02/2024")
	require.NotNil(t, expr)
	assert.Equal(t, TemporalRange, expr.Kind)
	assert.Equal(t, time.Date(2023, time.December, 25, 0, 0, 0, 0, time.UTC), *expr.Start)
	assert.Equal(t, time.February, expr.End.Month())
	assert.Equal(t, 28, expr.End.Day())
}

func TestParseFiscalYear(t *testing.T) {
	parser := newTestTemporalParser()

	expr := parser.Parse("tax year 2023 documents")
	require.NotNil(t, expr)
	assert.Equal(t, TemporalFiscal, expr.Kind)
	assert.Equal(t, time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC), *expr.Start)
	assert.Equal(t, time.Date(2024, time.March, 31, 23, 59, 59, 999999999, time.UTC), *expr.End)
}

func TestParseSeason(t *testing.T) {
	parser := newTestTemporalParser()

	t.Run("summer of a given year", func(t *testing.T) {
		expr := parser.Parse("summer 2023 trips")
		require.NotNil(t, expr)
		assert.Equal(t, TemporalRange, expr.Kind)
		assert.Equal(t, time.Date(2023, time.June, 21, 0, 0, 0, 0, time.UTC), *expr.Start)
		assert.Equal(t, time.September, expr.End.Month())
	})

	t.Run("winter spans the year boundary", func(t *testing.T) {
		expr := parser.Parse("winter 2024")
		require.NotNil(t, expr)
		assert.Equal(t, time.Date(2023, time.December, 21, 0, 0, 0, 0, time.UTC), *expr.Start)
		assert.Equal(t, time.March, expr.End.Month())
		assert.Equal(t, 2024, expr.End.Year())
	})
}

func TestParseAbsoluteAndMonth(t *testing.T) {
	parser := newTestTemporalParser()

	t.Run("written date", func(t *testing.T) {
		expr := parser.Parse("receipt from May 12, 2023")
		require.NotNil(t, expr)
		assert.Equal(t, TemporalAbsolute, expr.Kind)
		assert.Equal(t, time.Date(2023, time.May, 12, 0, 0, 0, 0, time.UTC), *expr.Start)
		assert.Equal(t, 12, expr.End.Day())
	})

	t.Run("two digit year expansion", func(t *testing.T) {
		expr := parser.Parse("invoice dated 25/12/99")
		require.NotNil(t, expr)
		assert.Equal(t, 1999, expr.Start.Year())

		expr = parser.Parse("invoice dated 25/12/05")
		require.NotNil(t, expr)
		assert.Equal(t, 2005, expr.Start.Year())
	})

	t.Run("bare month with year", func(t *testing.T) {
		expr := parser.Parse("statements from March 2023")
		require.NotNil(t, expr)
		assert.Equal(t, TemporalRange, expr.Kind)
		assert.Equal(t, time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC), *expr.Start)
		assert.Equal(t, 31, expr.End.Day())
	})

	t.Run("no temporal wording", func(t *testing.T) {
		assert.Nil(t, parser.Parse("receipts from Costco"))
	})
}

func TestCombine(t *testing.T) {
	may1 := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	may31 := time.Date(2024, time.May, 31, 23, 59, 59, 0, time.UTC)
	may10 := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)
	june30 := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

	t.Run("intersection of overlapping windows", func(t *testing.T) {
		a := &TemporalExpression{Kind: TemporalRelative, Start: &may1, End: &may31}
		b := &TemporalExpression{Kind: TemporalRange, Start: &may10, End: &june30}

		merged := Combine(a, b)
		require.NotNil(t, merged)
		assert.Equal(t, TemporalRange, merged.Kind)
		assert.Equal(t, may10, *merged.Start)
		assert.Equal(t, may31, *merged.End)
	})

	t.Run("nil operands pass through", func(t *testing.T) {
		a := &TemporalExpression{Kind: TemporalRelative, Start: &may1, End: &may31}
		assert.Equal(t, a, Combine(a, nil))
		assert.Equal(t, a, Combine(nil, a))
		assert.Nil(t, Combine(nil, nil))
	})

	t.Run("empty intersection prefers the count operand", func(t *testing.T) {
		a := &TemporalExpression{Kind: TemporalRelative, Start: &june30, End: &june30}
		b := &TemporalExpression{Kind: TemporalCount, Start: &may1, End: &may31, Count: 5}

		assert.Equal(t, b, Combine(a, b))
	})

	t.Run("refinement fields win", func(t *testing.T) {
		a := &TemporalExpression{Kind: TemporalCount, Count: 5, DocumentType: "receipt"}
		b := &TemporalExpression{Kind: TemporalCount, Count: 3}

		merged := Combine(a, b)
		assert.Equal(t, 3, merged.Count)
		assert.Equal(t, "receipt", merged.DocumentType)
	})
}
