package core

import "time"

// HTTP identifiers for the per-client state owner
const (
	ClientIDHeader = "X-Client-ID"
	ClientIDCookie = "client_id"
)

// Persisted entry names. Full keys are "<client>:<entry>".
const (
	KeyCart     = "cart"
	KeyWishlist = "wishlist"
	KeyTheme    = "theme"
)

// Key prefixes for service-wide records
const (
	SessionKeyPrefix = "assistant:session:"
	DocJobKeyPrefix  = "docgen:job:"
)

// DefaultNotificationTTL is how long a toast stays visible
const DefaultNotificationTTL = 3000 * time.Millisecond

// DefaultSearchDebounce is the quiet period before a search query applies
const DefaultSearchDebounce = 300 * time.Millisecond

// ClientKey builds the persisted key for one client entry
func ClientKey(clientID, entry string) string {
	return clientID + ":" + entry
}
