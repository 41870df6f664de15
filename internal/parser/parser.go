package parser

// Parser extracts normalized listing fields from a rendered product
// detail page.
type Parser interface {
	ParseProductPage(html string) (*Detail, error)
}

// Detail holds the fields recoverable from a product detail page.
// Title and Price are authoritative and overwrite shallow card values
// during the merge; Size, Condition and Brand only fill empty fields.
type Detail struct {
	Title     string
	Price     string
	Size      string
	Condition string
	Brand     string
}
