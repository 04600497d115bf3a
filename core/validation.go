// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - OcrText must not be empty
//   - DocumentType must not be empty
//   - InsertedAt must not be in the future
//   - TotalAmount must not be negative when HasAmount is set
//
// NOT validated (populated by processors):
//   - SearchVector (can be empty until embedding processor runs)
//   - Date (zero is valid when OCR found no date)
//   - Vendor and Currency (optional fields)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.OcrText == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyOcrText)
	}

	if doc.DocumentType == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentType)
	}

	if !doc.InsertedAt.IsZero() && !IsValidTimestamp(doc.InsertedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidTimestamp)
	}

	if doc.HasAmount && doc.TotalAmount < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrNegativeAmount)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
