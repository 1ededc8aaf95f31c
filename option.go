package dbmap

// RepositoryOption configures repository construction.
type RepositoryOption[T any] func(o *repoOption[T])

type repoOption[T any] struct {
	initValues  []T
	ensureTable bool
}

// InitWith seeds the table with values at construction time. Implies
// EnsureTable; duplicate keys are ignored.
func InitWith[T any](values ...T) RepositoryOption[T] {
	return func(o *repoOption[T]) {
		o.initValues = values
		o.ensureTable = true
	}
}

// EnsureTable creates the backing table at construction time when it does
// not exist yet.
func EnsureTable[T any]() RepositoryOption[T] {
	return func(o *repoOption[T]) {
		o.ensureTable = true
	}
}

// QueryOption configures a single repository call.
type QueryOption func(o *queryOption)

type queryOption struct {
	Tx              Transaction
	Selectors       []any
	RawColumns      string
	Where           string
	Limit           int
	Offset          int64
	Params          ParamBag
	IgnoreDuplicate bool
	Warn            func(FieldWarning)
}

// WithTransaction runs the call inside an already-begun transaction instead
// of directly on the connection.
func WithTransaction(tx Transaction) QueryOption {
	return func(o *queryOption) {
		o.Tx = tx
	}
}

// WithColumns projects only the referenced fields. Selectors are validated
// against the record's mapping table when the statement is built.
func WithColumns(selectors ...FieldRef) QueryOption {
	return func(o *queryOption) {
		o.Selectors = Map(selectors, func(r FieldRef) any { return r })
	}
}

// WithRawColumns replaces the column set wholesale with a comma-separated
// list used verbatim. The caller owns its validity.
func WithRawColumns(csv string) QueryOption {
	return func(o *queryOption) {
		o.RawColumns = csv
	}
}

// WithWhere appends a verbatim predicate fragment (including the WHERE
// keyword) to a synthesized SELECT. Bind values through WithParams, never by
// interpolating them into the fragment.
func WithWhere(clause string) QueryOption {
	return func(o *queryOption) {
		o.Where = clause
	}
}

func WithLimit(limit int) QueryOption {
	return func(o *queryOption) {
		o.Limit = limit
	}
}

func WithOffset(offset int64) QueryOption {
	return func(o *queryOption) {
		o.Offset = offset
	}
}

// WithParams supplies additional named parameters. Field-derived parameters
// of the same name always win.
func WithParams(params ParamBag) QueryOption {
	return func(o *queryOption) {
		o.Params = params
	}
}

// IgnoreDuplicate turns key collisions on insert into no-ops using the
// flavor's conflict clause.
func IgnoreDuplicate() QueryOption {
	return func(o *queryOption) {
		o.IgnoreDuplicate = true
	}
}

// CollectWarnings makes swallowed read-path coercion failures observable.
// Mapping stays best-effort either way; fn receives one FieldWarning per
// field left at its default.
func CollectWarnings(fn func(FieldWarning)) QueryOption {
	return func(o *queryOption) {
		o.Warn = fn
	}
}
