package selection

// Quota is the outstanding part of a bulk-select request: the next Remaining
// not-yet-consumed records, in catalog order, starting at ResumePage.
type Quota struct {
	Remaining  int `json:"remaining"`
	ResumePage int `json:"resume_page"`
}

// Active reports whether the quota still has records to select.
func (q Quota) Active() bool {
	return q.Remaining > 0
}

// Option configures a BulkFill.
type Option func(*BulkFill)

// WithTotalPages sets the initially known page count of the catalog.
func WithTotalPages(n int) Option {
	return func(b *BulkFill) {
		if n > 0 {
			b.totalPages = n
		}
	}
}

// WithPageLocal restricts bulk selection to the page it was requested on.
// Whatever the page cannot satisfy is dropped instead of carried over.
func WithPageLocal() Option {
	return func(b *BulkFill) {
		b.pageLocal = true
	}
}

// BulkFill owns the bulk-select quota and applies it to pages as they
// arrive.
type BulkFill struct {
	store      *Store
	quota      Quota
	totalPages int // 0 while unknown
	pageLocal  bool
}

// NewBulkFill creates a controller that records its selections in store.
func NewBulkFill(store *Store, opts ...Option) *BulkFill {
	b := &BulkFill{store: store}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Request replaces any existing quota with count records starting at
// startPage. It only records intent; pages are consumed by OnPageAvailable.
//
// A negative count or a start page below 1 is ignored and leaves the
// current quota as it was. A zero count, or a start page past the known end,
// replaces the quota with an empty one. Returns true when a quota with
// records to select was set.
func (b *BulkFill) Request(count, startPage int) bool {
	if count < 0 || startPage < 1 {
		return false
	}
	if count == 0 || (b.totalPages > 0 && startPage > b.totalPages) {
		b.quota = Quota{}
		return false
	}
	b.quota = Quota{Remaining: count, ResumePage: startPage}
	return true
}

// OnPageAvailable consumes a freshly loaded page. ids are the page's record
// ids in catalog order; totalPages is the page count reported with the page
// (0 keeps the known value).
//
// Pages other than the resume page are ignored. Returns whether the quota
// is still outstanding, i.e. whether the caller should advance to
// Quota().ResumePage.
func (b *BulkFill) OnPageAvailable(page int, ids []string, totalPages int) bool {
	b.SetTotalPages(totalPages)

	if b.quota.Remaining == 0 || page != b.quota.ResumePage {
		return b.Outstanding()
	}

	n := b.quota.Remaining
	if n > len(ids) {
		n = len(ids)
	}
	b.store.SetPage(page, ids[:n], true)

	b.quota.Remaining -= n
	b.quota.ResumePage = page + 1

	switch {
	case b.quota.Remaining == 0:
	case b.pageLocal:
		b.quota.Remaining = 0
	case b.totalPages > 0 && b.quota.ResumePage > b.totalPages:
		// dataset exhausted, unmet part is dropped
		b.quota.Remaining = 0
	}

	return b.Outstanding()
}

// Outstanding reports whether the quota still targets a page in range.
// An unknown page count is treated as in range.
func (b *BulkFill) Outstanding() bool {
	if b.quota.Remaining == 0 {
		return false
	}
	return b.totalPages == 0 || b.quota.ResumePage <= b.totalPages
}

// Quota returns a copy of the current quota.
func (b *BulkFill) Quota() Quota {
	return b.quota
}

// TotalPages returns the known page count, 0 when unknown.
func (b *BulkFill) TotalPages() int {
	return b.totalPages
}

// SetTotalPages updates the known page count. Non-positive values are
// ignored.
func (b *BulkFill) SetTotalPages(n int) {
	if n > 0 {
		b.totalPages = n
	}
}

// Reset drops any outstanding quota.
func (b *BulkFill) Reset() {
	b.quota = Quota{}
}

// PageLocal reports whether the controller runs in page-local mode.
func (b *BulkFill) PageLocal() bool {
	return b.pageLocal
}
