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


// Package ingestion stores OCR'd documents and enriches them in the
// background: embedding vectors for semantic search and derived
// keywords for exact matching. Storage is synchronous so callers get
// IDs back; enrichment failures are logged and retried implicitly by
// the next search's vector backfill.
package ingestion
