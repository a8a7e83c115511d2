// Package pagination loads catalog pages one at a time and reports each
// load to interested listeners.
//
// PageCache holds the single resident page. Navigator fetches a page through
// a PageFetcher, stores it in the cache and then emits a PageLoaded event.
// The bulk-fill walk in pkg/selection reacts to those events; it never
// fetches on its own.
//
// Example usage:
//
//	cache := pagination.NewPageCache()
//	nav := pagination.NewNavigator(catalogClient, cache, pagination.DefaultConfig())
//	nav.OnPageLoaded(func(p *pagination.Page) {
//		bulk.OnPageAvailable(p.Index, p.IDs(), p.TotalPages)
//	})
//	page, err := nav.GoTo(ctx, 1)
//
// Navigator.Prefetch warms a set of pages concurrently with a bounded
// worker pool (BatchFetcher). Prefetched pages are still delivered one by
// one, in the order GoTo is called, so listeners always observe loads in
// navigation order.
package pagination
