package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	classifier := NewClassifier()

	tests := []struct {
		name    string
		text    string
		primary Intent
	}{
		{"plain search", "find my receipts", IntentSearch},
		{"count wins over filter", "how many receipts from Costco", IntentCount},
		{"aggregate", "total spent on groceries", IntentAggregate},
		{"compare", "invoices over $500", IntentCompare},
		{"limit", "top 10 invoices", IntentLimit},
		{"sort", "receipts sorted by date", IntentSort},
		{"hebrew count", "כמה קבלות יש לי", IntentCount},
		{"no keywords is still search", "blue parking garage", IntentSearch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intents := classifier.Classify(tt.text, nil)
			require.NotEmpty(t, intents)
			assert.Equal(t, tt.primary, intents[0])
		})
	}
}

func TestClassifyEntityInference(t *testing.T) {
	classifier := NewClassifier()

	t.Run("vendor and type entities imply filter", func(t *testing.T) {
		entities := []Entity{
			{Type: EntityVendor, Value: "Costco", Confidence: 0.7},
			{Type: EntityDocumentType, Value: "receipt", Confidence: 0.8},
		}
		intents := classifier.Classify("costco receipts", entities)
		assert.Contains(t, intents, IntentFilter)
	})

	t.Run("amount entity with comparison wording implies filter", func(t *testing.T) {
		entities := []Entity{
			{Type: EntityAmount, Value: "50", Confidence: 0.9},
		}
		intents := classifier.Classify("receipts over $50", entities)
		assert.Contains(t, intents, IntentCompare)
		assert.Contains(t, intents, IntentFilter)
	})

	t.Run("amount entity without comparison wording does not", func(t *testing.T) {
		entities := []Entity{
			{Type: EntityAmount, Value: "50", Confidence: 0.9},
		}
		intents := classifier.Classify("the $50 receipt", entities)
		assert.NotContains(t, intents, IntentCompare)
	})

	t.Run("count entity implies limit", func(t *testing.T) {
		entities := []Entity{
			{Type: EntityCount, Value: "5", Confidence: 0.9},
		}
		intents := classifier.Classify("the last 5 receipts", entities)
		assert.Contains(t, intents, IntentLimit)
	})
}

func TestClassifyWithConfidence(t *testing.T) {
	classifier := NewClassifier()

	t.Run("supporting entities raise confidence", func(t *testing.T) {
		entities := []Entity{
			{Type: EntityDocumentType, Value: "receipt", Confidence: 0.8},
		}
		intent, confidence := classifier.ClassifyWithConfidence("how many receipts do I have", entities)

		assert.Equal(t, IntentCount, intent)
		// 0.5 baseline + 0.2 pattern + 0.08 entity + 0.15 keyword
		assert.InDelta(t, 0.93, confidence, 1e-9)
	})

	t.Run("bare query stays at baseline", func(t *testing.T) {
		intent, confidence := classifier.ClassifyWithConfidence("blue parking garage", nil)

		assert.Equal(t, IntentSearch, intent)
		assert.InDelta(t, 0.5, confidence, 1e-9)
	})

	t.Run("confidence is capped", func(t *testing.T) {
		entities := []Entity{
			{Type: EntityCount, Value: "5", Confidence: 1.0},
			{Type: EntityDocumentType, Value: "receipt", Confidence: 1.0},
		}
		_, confidence := classifier.ClassifyWithConfidence("how many of the last 5 receipts count", entities)
		assert.LessOrEqual(t, confidence, 1.0)
	})
}
