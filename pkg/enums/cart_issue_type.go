package enums

// CartIssueType classifies a problem discovered while reconciling a cart
// item against the live catalog.
type CartIssueType string

const (
	CartIssueProductNotFound   CartIssueType = "product_not_found"
	CartIssueVariantNotFound   CartIssueType = "variant_not_found"
	CartIssueInsufficientStock CartIssueType = "insufficient_stock"
	CartIssuePriceChanged      CartIssueType = "price_changed"
)

// String implements fmt.Stringer.
func (t CartIssueType) String() string {
	return string(t)
}
