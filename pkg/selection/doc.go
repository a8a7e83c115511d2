// Package selection tracks which catalog records a user has selected, page by
// page, and implements the cross-page bulk-fill walk.
//
// The package has no I/O and never logs. It is driven by the caller:
//
//	store := selection.NewStore()
//	bulk := selection.NewBulkFill(store, selection.WithTotalPages(10))
//
//	// User asks for the first 25 records, page 1 is on screen.
//	bulk.Request(25, 1)
//
//	// Every page load is reported, whether or not a walk is running.
//	if bulk.OnPageAvailable(page.Index, ids, page.TotalPages) {
//		// quota still outstanding: advance to bulk.Quota().ResumePage
//	}
//
// Selection always proceeds in catalog order. A page delivered out of order
// (a stale fetch, or the user navigating away mid-walk) is ignored by the
// quota and does not corrupt it; the walk resumes once the resume page is
// loaded again.
//
// Store and BulkFill are not safe for concurrent use. Callers serialize
// access (see pkg/session).
package selection
