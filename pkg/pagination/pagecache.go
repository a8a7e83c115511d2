package pagination

// PageCache holds the most recently loaded page and its pagination
// metadata. Only one page is resident at a time.
type PageCache struct {
	page *Page
}

// NewPageCache creates an empty page cache.
func NewPageCache() *PageCache {
	return &PageCache{}
}

// Store replaces the resident page.
func (c *PageCache) Store(p *Page) {
	c.page = p.clone()
}

// Current returns a copy of the resident page, nil before the first load.
func (c *PageCache) Current() *Page {
	return c.page.clone()
}

// Loaded reports whether any page has been stored.
func (c *PageCache) Loaded() bool {
	return c.page != nil
}

// Index returns the resident page number, 0 before the first load.
func (c *PageCache) Index() int {
	if c.page == nil {
		return 0
	}
	return c.page.Index
}

// Limit returns the page size of the resident page.
func (c *PageCache) Limit() int {
	if c.page == nil {
		return 0
	}
	return c.page.Limit
}

// TotalPages returns the page count reported with the resident page.
func (c *PageCache) TotalPages() int {
	if c.page == nil {
		return 0
	}
	return c.page.TotalPages
}
