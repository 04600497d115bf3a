package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/scandex/ai"
	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/query"
	"github.com/poiesic/scandex/ranking"
	"github.com/poiesic/scandex/storage"
)

const (
	// SearchMethodHybrid combines semantic vectors with structured factors.
	SearchMethodHybrid = "hybrid"
	// SearchMethodKeyword is the degraded mode when embeddings are unavailable.
	SearchMethodKeyword = "keyword"

	defaultEmbedWorkers = 4
	embedBatchSize      = 16
	// maxVectorBackfill bounds how many missing document vectors a single
	// search will compute, keeping latency and memory predictable.
	maxVectorBackfill = 64

	maxSuggestions = 3
)

// Options are per-search settings. Zero MaxResults and MinConfidence
// fall back to the searcher defaults; the booleans are taken as given,
// so build from DefaultOptions when overriding a single field.
type Options struct {
	MaxResults    int
	MinConfidence float64
	FuzzyMatching bool
	RecencyBoost  bool
}

// DefaultOptions returns the standard search settings.
func DefaultOptions() Options {
	return Options{
		MaxResults:    10,
		MinConfidence: 0.3,
		FuzzyMatching: true,
		RecencyBoost:  true,
	}
}

// Validate rejects out-of-range settings.
func (o Options) Validate() error {
	if o.MaxResults < 0 {
		return fmt.Errorf("max results is negative: %w", ErrInvalidOptions)
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("min confidence outside [0,1]: %w", ErrInvalidOptions)
	}
	return nil
}

// merged fills unset numeric fields from the defaults.
func (o Options) merged(defaults Options) Options {
	if o.MaxResults == 0 {
		o.MaxResults = defaults.MaxResults
	}
	if o.MinConfidence == 0 {
		o.MinConfidence = defaults.MinConfidence
	}
	return o
}

// Context carries session preferences and standing filters that fill
// only the fields a query leaves unset. The query's own wording always
// wins.
type Context struct {
	PreferredDocumentTypes []string
	PreferredCurrency      string
	// ActiveFilters are standing constraints from earlier in the
	// session, e.g. the top of a refinement stack.
	ActiveFilters *query.ParsedQuery
}

// Result is the outcome of one search.
type Result struct {
	Query        *query.ParsedQuery
	Documents    []core.ScoredDocument
	TotalMatches int // matches above the confidence floor, before truncation
	SearchMethod string
	Filters      *storage.Filter // predicates pushed down to storage
	Suggestions  []string
	Elapsed      time.Duration
	FromCache    bool
}

// Searcher orchestrates query parsing, storage fetch, embedding and
// ranking into one pipeline over scanned documents.
type Searcher struct {
	repository storage.DocumentRepository
	embedder   ai.Embedder
	parser     *query.Parser
	engine     *ranking.Engine
	cache      *resultCache
	pool       *ants.Pool
	options    Options
	workers    int
	now        func() time.Time
	logger     *slog.Logger

	stackMu sync.Mutex
	stack   []*query.ParsedQuery
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithParser replaces the default query parser.
func WithParser(parser *query.Parser) Option {
	return func(s *Searcher) error {
		if parser != nil {
			s.parser = parser
		}
		return nil
	}
}

// WithEngine replaces the default ranking engine.
func WithEngine(engine *ranking.Engine) Option {
	return func(s *Searcher) error {
		if engine != nil {
			s.engine = engine
		}
		return nil
	}
}

// WithDefaultOptions overrides the searcher-wide default options.
func WithDefaultOptions(options Options) Option {
	return func(s *Searcher) error {
		if err := options.Validate(); err != nil {
			return err
		}
		s.options = options
		return nil
	}
}

// WithClock pins the searcher's notion of "now" for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// WithEmbedWorkers sets the size of the vector backfill worker pool.
func WithEmbedWorkers(workers int) Option {
	return func(s *Searcher) error {
		if workers > 0 {
			s.workers = workers
		}
		return nil
	}
}

// NewSearcher creates a searcher over the given repository and AI
// provider. Call Close when done to release the worker pool.
func NewSearcher(
	repository storage.DocumentRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if repository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		repository: repository,
		embedder:   provider.Embedder(),
		parser:     query.NewParser(),
		options:    DefaultOptions(),
		workers:    defaultEmbedWorkers,
		now:        time.Now,
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.engine == nil {
		engine, err := ranking.NewEngine(ranking.WithEngineLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.engine = engine
	}
	s.cache = newResultCache(s.now)

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("creating embed worker pool: %w", err)
	}
	s.pool = pool
	return s, nil
}

// Close releases the searcher's worker pool.
func (s *Searcher) Close() {
	s.pool.Release()
}

// Search runs the full pipeline with the searcher's default options.
func (s *Searcher) Search(ctx context.Context, rawQuery string) (*Result, error) {
	return s.SearchWithOptions(ctx, rawQuery, s.options)
}

// SearchWithOptions runs the full pipeline with per-call options.
// Results are cached by raw query text unless the caller overrides the
// result count, since a cached page of a different size would be wrong.
func (s *Searcher) SearchWithOptions(ctx context.Context, rawQuery string, opts Options) (*Result, error) {
	return s.SearchWithMonitor(ctx, rawQuery, opts, nil)
}

// SearchWithMonitor is SearchWithOptions with pipeline observation.
func (s *Searcher) SearchWithMonitor(ctx context.Context, rawQuery string, opts Options, monitor Monitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	cacheable := opts.MaxResults == 0 || opts.MaxResults == s.options.MaxResults
	opts = opts.merged(s.options)

	monitor.Start(rawQuery)

	if cacheable {
		if cached := s.cache.get(rawQuery); cached != nil {
			monitor.CacheHit(rawQuery)
			hit := *cached
			hit.FromCache = true
			monitor.Finish(&hit)
			return &hit, nil
		}
	}

	parsed, err := s.parser.Parse(rawQuery)
	if err != nil {
		return nil, err
	}
	monitor.AfterParse(parsed)

	result, err := s.searchParsed(ctx, parsed, opts, monitor)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.put(rawQuery, result)
	}
	monitor.Finish(result)
	return result, nil
}

// SearchWithContext is SearchWithOptions with session context applied
// after parsing. Context-shaped results are never cached, since the
// same raw query can resolve differently per session.
func (s *Searcher) SearchWithContext(ctx context.Context, rawQuery string, opts Options, qc *Context) (*Result, error) {
	if qc == nil {
		return s.SearchWithOptions(ctx, rawQuery, opts)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.merged(s.options)

	parsed, err := s.parser.Parse(rawQuery)
	if err != nil {
		return nil, err
	}
	applyContext(parsed, qc)

	return s.searchParsed(ctx, parsed, opts, &noopMonitor{})
}

// applyContext fills unset query fields from session context.
func applyContext(q *query.ParsedQuery, qc *Context) {
	if len(q.DocumentTypes) == 0 && len(qc.PreferredDocumentTypes) > 0 {
		q.DocumentTypes = append([]string(nil), qc.PreferredDocumentTypes...)
	}
	if q.Amount != nil && q.Amount.Currency == "" {
		q.Amount.Currency = qc.PreferredCurrency
	}

	active := qc.ActiveFilters
	if active == nil {
		return
	}
	if q.Temporal == nil {
		q.Temporal = active.Temporal
	}
	if q.Amount == nil {
		q.Amount = active.Amount
	}
	if len(q.Vendors) == 0 {
		q.Vendors = append([]string(nil), active.Vendors...)
	}
	if len(q.DocumentTypes) == 0 {
		q.DocumentTypes = append([]string(nil), active.DocumentTypes...)
	}
}

// SearchWithRefinement narrows the previous query on the stack with a
// follow-up. With an empty stack it behaves like a fresh search. The
// merged query is pushed so refinements chain.
func (s *Searcher) SearchWithRefinement(ctx context.Context, refinement string) (*Result, error) {
	s.stackMu.Lock()
	var base *query.ParsedQuery
	if len(s.stack) > 0 {
		base = s.stack[len(s.stack)-1]
	}
	s.stackMu.Unlock()

	parsed, err := s.parser.ParseAndRefine(base, refinement)
	if err != nil {
		return nil, err
	}

	result, err := s.searchParsed(ctx, parsed, s.options, &noopMonitor{})
	if err != nil {
		return nil, err
	}

	s.stackMu.Lock()
	s.stack = append(s.stack, parsed)
	s.stackMu.Unlock()
	return result, nil
}

// StackDepth reports how many queries are on the refinement stack.
func (s *Searcher) StackDepth() int {
	s.stackMu.Lock()
	defer s.stackMu.Unlock()
	return len(s.stack)
}

// Stack returns a copy of the refinement stack, oldest first.
func (s *Searcher) Stack() []*query.ParsedQuery {
	s.stackMu.Lock()
	defer s.stackMu.Unlock()
	return append([]*query.ParsedQuery(nil), s.stack...)
}

// ClearStack drops the refinement history.
func (s *Searcher) ClearStack() {
	s.stackMu.Lock()
	defer s.stackMu.Unlock()
	s.stack = nil
}

// ClearCache drops all cached results.
func (s *Searcher) ClearCache() {
	s.cache.clear()
}

// searchParsed executes the storage, embedding and ranking stages for
// an already-parsed query.
func (s *Searcher) searchParsed(ctx context.Context, parsed *query.ParsedQuery, opts Options, monitor Monitor) (*Result, error) {
	started := s.now()

	filter := pushdownFilter(parsed)
	docs, err := s.repository.FetchFiltered(ctx, filter)
	if err != nil {
		s.logger.Error("error fetching candidate documents", "query", parsed.RawQuery, "err", err)
		return nil, err
	}
	monitor.AfterStorageFetch(len(docs))

	// Without fuzzy matching, candidates must carry at least half of the
	// query keywords to stay in the running.
	if !opts.FuzzyMatching && len(parsed.Keywords) > 0 {
		strict := docs[:0]
		for _, doc := range docs {
			if keywordCoverage(parsed.Keywords, doc.SearchText()) >= 0.5 {
				strict = append(strict, doc)
			}
		}
		docs = strict
	}

	// A vendor constraint is a filter, not just a ranking signal:
	// candidates from unrelated vendors leave the running here.
	if len(parsed.Vendors) > 0 {
		byVendor := docs[:0]
		for _, doc := range docs {
			if ranking.MatchesVendor(parsed.Vendors, doc.Vendor, opts.FuzzyMatching) {
				byVendor = append(byVendor, doc)
			}
		}
		docs = byVendor
	}

	method := SearchMethodHybrid
	queryVector, err := s.embedder.EmbedText(ctx, parsed.RawQuery)
	if err != nil {
		// Embeddings are an enhancement; keyword search still works.
		s.logger.Warn("embedding unavailable, degrading to keyword search", "err", err)
		monitor.EmbeddingUnavailable(err)
		method = SearchMethodKeyword
		queryVector = nil
	} else {
		monitor.AfterEmbedding(len(queryVector))
		s.backfillVectors(ctx, docs)
	}

	scored := s.engine.Rank(docs, ranking.Request{
		Query:            parsed,
		QueryVector:      queryVector,
		Fuzzy:            opts.FuzzyMatching,
		SkipRecencyBoost: !opts.RecencyBoost,
	})
	monitor.AfterRanking(scored)

	kept := scored[:0]
	for _, sd := range scored {
		if sd.Confidence >= opts.MinConfidence {
			kept = append(kept, sd)
		}
	}
	total := len(kept)
	if opts.MaxResults > 0 && len(kept) > opts.MaxResults {
		kept = kept[:opts.MaxResults]
	}

	result := &Result{
		Query:        parsed,
		Documents:    kept,
		TotalMatches: total,
		SearchMethod: method,
		Filters:      filter,
		Suggestions:  buildSuggestions(parsed),
		Elapsed:      s.now().Sub(started),
	}
	s.logger.Debug("search complete",
		"query", parsed.RawQuery,
		"method", method,
		"candidates", len(docs),
		"matches", total,
		"elapsed", result.Elapsed)
	return result, nil
}

// backfillVectors computes embeddings for candidate documents that have
// none yet, in bounded parallel batches, and persists them
// opportunistically so the next search is cheaper. Failures only cost
// the semantic factor for the affected documents.
func (s *Searcher) backfillVectors(ctx context.Context, docs []*core.Document) {
	var missing []*core.Document
	for _, doc := range docs {
		if doc != nil && len(doc.SearchVector) == 0 {
			missing = append(missing, doc)
			if len(missing) == maxVectorBackfill {
				break
			}
		}
	}
	if len(missing) == 0 {
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < len(missing); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			s.embedBatch(ctx, batch)
		})
		if submitErr != nil {
			wg.Done()
			s.logger.Warn("embed pool rejected batch", "err", submitErr)
		}
	}
	wg.Wait()
}

func (s *Searcher) embedBatch(ctx context.Context, batch []*core.Document) {
	texts := make([]string, len(batch))
	for i, doc := range batch {
		texts[i] = doc.SearchText()
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil || len(vectors) != len(batch) {
		s.logger.Warn("batch embedding failed", "size", len(batch), "err", err)
		return
	}
	for i, doc := range batch {
		doc.SearchVector = vectors[i]
		if err := s.repository.UpdateSearchVector(ctx, doc.Id, vectors[i]); err != nil {
			s.logger.Debug("could not persist search vector", "id", doc.Id, "err", err)
		}
	}
}

// pushdownFilter translates the structured parts of a parsed query into
// storage predicates. Amount equality is deliberately not pushed down:
// it scores by closeness, so near-misses must stay in the candidate set.
func pushdownFilter(q *query.ParsedQuery) *storage.Filter {
	filter := &storage.Filter{DocumentTypes: q.DocumentTypes}

	if q.Temporal != nil {
		filter.Start = q.Temporal.Start
		filter.End = q.Temporal.End
	}
	if q.Amount != nil {
		switch q.Amount.Operator {
		case query.AmountGreater:
			v := q.Amount.Value
			filter.MinAmount = &v
		case query.AmountLess:
			v := q.Amount.Value
			filter.MaxAmount = &v
		case query.AmountBetween:
			lo, hi := q.Amount.Value, q.Amount.MaxValue
			filter.MinAmount, filter.MaxAmount = &lo, &hi
		}
	}
	return filter
}

// keywordCoverage is the fraction of query keywords found in the text.
func keywordCoverage(keywords []string, text string) float64 {
	if len(keywords) == 0 {
		return 1
	}
	lower := strings.ToLower(text)
	found := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}

// buildSuggestions proposes up to three ways to narrow the query, one
// per structured dimension the query has not used yet: date range,
// document type, amount bound, then sort order.
func buildSuggestions(q *query.ParsedQuery) []string {
	var suggestions []string
	if q.Temporal == nil {
		suggestions = append(suggestions, `narrow by date, e.g. "from last month"`)
	}
	if len(q.DocumentTypes) == 0 {
		suggestions = append(suggestions, `narrow by document type, e.g. "receipts"`)
	}
	if q.Amount == nil {
		suggestions = append(suggestions, `bound the amount, e.g. "over $50"`)
	}
	if q.SortBy == query.SortByRelevance {
		suggestions = append(suggestions, `order the results, e.g. "sorted by date"`)
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}
