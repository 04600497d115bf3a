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


package ranking

import (
	"fmt"

	"github.com/poiesic/scandex/core"
)

// Weights assigns a relative importance to each scoring factor.
// Scores are normalized over the factors present for a document, so the
// weights need not sum to one.
type Weights struct {
	Semantic     float64
	Keyword      float64
	Date         float64
	DocumentType float64
	Phonetic     float64
	Amount       float64
	Vendor       float64
}

// DefaultWeights returns the standard factor weighting, dominated by
// semantic and keyword relevance.
func DefaultWeights() Weights {
	return Weights{
		Semantic:     0.35,
		Keyword:      0.25,
		Date:         0.15,
		DocumentType: 0.10,
		Phonetic:     0.05,
		Amount:       0.05,
		Vendor:       0.05,
	}
}

// Validate rejects negative weights and all-zero weightings.
func (w Weights) Validate() error {
	total := 0.0
	for name, value := range w.byFactor() {
		if value < 0 {
			return fmt.Errorf("weight for %s is negative: %w", name, ErrInvalidWeights)
		}
		total += value
	}
	if total == 0 {
		return fmt.Errorf("all weights are zero: %w", ErrInvalidWeights)
	}
	return nil
}

// byFactor maps factor names to their weights for normalization.
func (w Weights) byFactor() map[string]float64 {
	return map[string]float64{
		core.FactorSemantic:     w.Semantic,
		core.FactorKeyword:      w.Keyword,
		core.FactorDate:         w.Date,
		core.FactorDocumentType: w.DocumentType,
		core.FactorPhonetic:     w.Phonetic,
		core.FactorAmount:       w.Amount,
		core.FactorVendor:       w.Vendor,
	}
}
