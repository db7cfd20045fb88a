/*
Package license derives analytical views from normalized entitlement records.

PURPOSE:
  An Engine owns one immutable set of flat records (see package entitlement)
  and answers the questions the dashboard and chat bot ask: what expired,
  what expires soon, where is usage above entitlement (shortage), how much of
  each license is used, and what is the technology mix per account.

KEY CONCEPTS IN THIS FILE (engine.go):
  - Engine: records + lazily computed, memoised views
  - Option: functional options (architecture table, clock, logger, hook)

VIEWS (one file each):
  accounts.go:   AccountNames, AccountSubAccounts
  expiration.go: ExpiredRecords, ExpiredLicenses, FutureExpiring (+ Top variants)
  shortage.go:   LicenseShortage, TopLicenseShortage
  usage.go:      LicenseUsage, TopLicenseUsage
  technology.go: LicenseTechnologyMix, TopLicenseTechnologyMix

MEMOISATION:
  Every view is computed on first call and served from the memo afterwards,
  including a failure. Views that take arguments are memoised per argument.
  "Now" is read when a view is first computed, so repeated calls on one
  engine agree with each other.

LIFECYCLE & CONCURRENCY:
  Build one Engine per request from freshly normalized records and drop it
  afterwards. The memo is guarded by a mutex and each slot is filled exactly
  once (sync.Once). This is stronger than a caller-synchronized memo: an
  Engine may be shared by goroutines reading views without any ordering on
  the caller's side, and a view is never computed twice. The locks are held
  only around memo bookkeeping and the first computation of a slot; no view
  blocks on I/O. Returned maps must be treated as read-only; returned slices
  are copies.

USAGE:
  records, _ := entitlement.Normalize(doc)
  engine := license.NewEngine(records, license.WithArchitectures(table))
  soon := engine.TopFutureExpiring(30, license.DefaultLimit)

SEE ALSO:
  - hierarchy.go: OrderedMap and the nesting builder every view uses
  - entitlement/normalize.go: Where the records come from
*/
package license

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/license-engine/entitlement"
)

// DefaultLimit is the row cap of the Top* views when no positive limit is given.
const DefaultLimit = 5

// =============================================================================
// ENGINE OPTIONS
// =============================================================================

// Option configures an Engine.
type Option func(*Engine)

// WithArchitectures sets the license -> architecture table used by the
// technology mix. Without one every license is Uncategorized.
func WithArchitectures(table ArchitectureTable) Option {
	return func(e *Engine) { e.architectures = table }
}

// WithClock overrides the source of "now" (UTC is enforced).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger. Default: logrus.StandardLogger().
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithComputeHook registers fn to be called with the memo key each time a
// view is actually computed (not when it is served from the memo).
func WithComputeHook(fn func(view string)) Option {
	return func(e *Engine) { e.onCompute = fn }
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes license views over an immutable record set.
type Engine struct {
	records       []entitlement.Record
	architectures ArchitectureTable
	now           func() time.Time
	log           logrus.FieldLogger
	onCompute     func(view string)

	mu   sync.Mutex
	memo map[string]*memoEntry
}

type memoEntry struct {
	once  sync.Once
	value any
	err   error
}

// NewEngine creates an engine over a copy of records.
func NewEngine(records []entitlement.Record, opts ...Option) *Engine {
	e := &Engine{
		records: append([]entitlement.Record(nil), records...),
		now:     time.Now,
		log:     logrus.StandardLogger(),
		memo:    make(map[string]*memoEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.architectures == nil {
		e.architectures = MapTable{}
	}
	return e
}

// FromDocument normalizes doc and creates an engine over the result.
func FromDocument(doc entitlement.Document, opts ...Option) (*Engine, error) {
	e := NewEngine(nil, opts...)
	records, err := entitlement.NewNormalizer(e.log).Normalize(doc)
	if err != nil {
		return nil, err
	}
	e.records = records
	return e, nil
}

// Records returns a copy of the flat records, in normalization order.
func (e *Engine) Records() []entitlement.Record {
	return append([]entitlement.Record(nil), e.records...)
}

// Len returns the number of flat records.
func (e *Engine) Len() int {
	return len(e.records)
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// remember returns the memoised value for key, computing it on first use.
func remember[T any](e *Engine, key string, compute func() (T, error)) (T, error) {
	e.mu.Lock()
	entry, ok := e.memo[key]
	if !ok {
		entry = &memoEntry{}
		e.memo[key] = entry
	}
	e.mu.Unlock()

	entry.once.Do(func() {
		if e.onCompute != nil {
			e.onCompute(key)
		}
		e.log.WithField("view", key).Debug("computing license view")
		entry.value, entry.err = compute()
	})

	if entry.err != nil {
		var zero T
		return zero, entry.err
	}
	return entry.value.(T), nil
}

// rememberValue is remember for views that cannot fail.
func rememberValue[T any](e *Engine, key string, compute func() T) T {
	v, _ := remember(e, key, func() (T, error) { return compute(), nil })
	return v
}

// limitOf maps a non-positive limit to DefaultLimit.
func limitOf(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// head returns at most n leading rows.
func head[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
