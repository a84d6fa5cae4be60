package cart

// Wishlist is a set of product ids kept in the order they were added
type Wishlist []int

// Toggle adds id when absent and removes it when present.
// Toggling the same id twice restores the original wishlist.
func Toggle(w Wishlist, id int) (Wishlist, bool) {
	out := make(Wishlist, 0, len(w)+1)
	removed := false
	for _, existing := range w {
		if existing == id {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	if removed {
		return out, false
	}
	return append(out, id), true
}

// Contains reports whether id is wishlisted
func Contains(w Wishlist, id int) bool {
	for _, existing := range w {
		if existing == id {
			return true
		}
	}
	return false
}
