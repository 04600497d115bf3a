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


// Package storage provides the storage abstraction layer for scandex.
//
// This package defines the DocumentRepository interface that decouples the
// search pipeline from storage implementation, along with the Filter type
// used to push structured predicates (date range, document types, amount
// bounds) down to the backend.
//
// Public constructors in backend packages return the storage interfaces to
// enforce abstraction; consumers can substitute in-memory implementations
// in tests without modification.
package storage
