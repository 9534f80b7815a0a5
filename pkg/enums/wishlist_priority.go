package enums

import "fmt"

// WishlistPriority ranks how much a customer wants a saved item.
type WishlistPriority string

const (
	WishlistPriorityLow    WishlistPriority = "low"
	WishlistPriorityMedium WishlistPriority = "medium"
	WishlistPriorityHigh   WishlistPriority = "high"
)

var validWishlistPriorities = []WishlistPriority{
	WishlistPriorityLow,
	WishlistPriorityMedium,
	WishlistPriorityHigh,
}

// String implements fmt.Stringer.
func (p WishlistPriority) String() string {
	return string(p)
}

// IsValid reports whether the value is a known WishlistPriority.
func (p WishlistPriority) IsValid() bool {
	for _, candidate := range validWishlistPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseWishlistPriority converts raw input into a WishlistPriority.
func ParseWishlistPriority(value string) (WishlistPriority, error) {
	for _, candidate := range validWishlistPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wishlist priority %q", value)
}
