package request

// ScrapeRequest asks for a synchronous scrape of one index page.
type ScrapeRequest struct {
	URL    string `json:"url"`
	Format string `json:"format"` // "csv" (default), "xlsx" or "json"
}
