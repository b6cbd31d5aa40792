package core

// Profile is the identity a connection announces when it identifies.
type Profile struct {
	ClientID string
	Nickname string
	// Extra holds caller-supplied fields beyond the nickname. Treated as read-only once registered.
	Extra map[string]any
}
