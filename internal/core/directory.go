package core

import "sync"

// Directory maps live connections to the profile they identified with.
type Directory struct {
	mu       sync.RWMutex
	profiles map[*Conn]Profile
}

// NewDirectory constructs an empty directory.
func NewDirectory() *Directory {
	return &Directory{profiles: make(map[*Conn]Profile)}
}

// Register inserts or replaces the profile for c.
func (d *Directory) Register(c *Conn, p Profile) {
	d.mu.Lock()
	d.profiles[c] = p
	d.mu.Unlock()
}

// Lookup returns the profile registered for c.
func (d *Directory) Lookup(c *Conn) (Profile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[c]
	return p, ok
}

// Remove deletes the entry for c. Removing an unknown connection is a no-op.
func (d *Directory) Remove(c *Conn) {
	d.mu.Lock()
	delete(d.profiles, c)
	d.mu.Unlock()
}

// Len returns the number of identified connections.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.profiles)
}
