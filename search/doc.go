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


// Package search orchestrates the full query pipeline over scanned
// documents: natural-language parsing, filter pushdown to storage,
// embedding-based semantic scoring, multi-factor ranking, result
// caching, and conversational refinement.
//
// The Searcher type is the entry point. When the embedding provider is
// unavailable it degrades to keyword-only matching instead of failing
// the search.
package search
