package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDocument(t *testing.T) {
	valid := func() *Document {
		return &Document{
			OcrText:      "Total: $42.00 Thank you for shopping",
			DocumentType: "receipt",
			Vendor:       "Costco",
			Date:         time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			TotalAmount:  42.0,
			HasAmount:    true,
			Currency:     "USD",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Document)
		wantErr error
	}{
		{
			name:   "valid document",
			mutate: func(d *Document) {},
		},
		{
			name:    "empty ocr text",
			mutate:  func(d *Document) { d.OcrText = "" },
			wantErr: ErrEmptyOcrText,
		},
		{
			name:    "empty document type",
			mutate:  func(d *Document) { d.DocumentType = "" },
			wantErr: ErrEmptyDocumentType,
		},
		{
			name:    "inserted in the future",
			mutate:  func(d *Document) { d.InsertedAt = time.Now().Add(24 * time.Hour) },
			wantErr: ErrInvalidTimestamp,
		},
		{
			name:    "negative amount",
			mutate:  func(d *Document) { d.TotalAmount = -5; d.HasAmount = true },
			wantErr: ErrNegativeAmount,
		},
		{
			name:   "negative amount ignored without flag",
			mutate: func(d *Document) { d.TotalAmount = -5; d.HasAmount = false },
		},
		{
			name:   "zero date is valid",
			mutate: func(d *Document) { d.Date = time.Time{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)
			err := ValidateDocument(doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("ValidateDocument() = %v, want wrapped ErrInvalidDocument", err)
			}
		})
	}

	t.Run("nil document", func(t *testing.T) {
		if err := ValidateDocument(nil); !errors.Is(err, ErrInvalidDocument) {
			t.Errorf("ValidateDocument(nil) = %v, want ErrInvalidDocument", err)
		}
	})
}
