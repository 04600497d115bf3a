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


// Package query turns free-text document searches into structured
// queries: typed entities, intent labels, temporal windows and amount
// predicates. Extraction is rule-based and language-tagged (English and
// Hebrew), with no network calls, so parsing is fast and deterministic.
//
// The entry point is Parser.Parse; ParseAndRefine supports conversational
// narrowing of a previous query.
package query
