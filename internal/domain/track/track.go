// Package track provides the track domain entities.
package track

import "time"

// Track represents a Spotify catalog track.
// Contains only information retrieved from Spotify API.
type Track struct {
	ID      string   // Spotify Track ID
	Name    string   // Track name
	Artists []string // Artist names
	Album   string   // Album name
	URL     string   // Spotify URL
}

// Play represents a single broadcast of a track on a radio station.
type Play struct {
	StationID string    // Station code the play was aired on
	Artist    string    // Artist as reported by the station
	Title     string    // Track title as reported by the station
	AiredAt   time.Time // Time the track started playing, in station local time
}

// Key returns the (artist, title) identity of the play.
func (p Play) Key() Key {
	return Key{Artist: p.Artist, Title: p.Title}
}

// Key identifies a track by its station metadata.
// Comparison is exact and case-sensitive.
type Key struct {
	Artist string
	Title  string
}

// Query returns the catalog search query for the key.
func (k Key) Query() string {
	return k.Artist + " " + k.Title
}

// KeySet is an insertion-ordered set of keys.
type KeySet struct {
	keys []Key
	seen map[Key]struct{}
}

// NewKeySet creates an empty key set.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[Key]struct{})}
}

// Add adds k to the set. Returns false if k was already present.
func (s *KeySet) Add(k Key) bool {
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	s.keys = append(s.keys, k)
	return true
}

// Contains reports whether k is in the set.
func (s *KeySet) Contains(k Key) bool {
	_, ok := s.seen[k]
	return ok
}

// Len returns the number of keys in the set.
func (s *KeySet) Len() int {
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *KeySet) Keys() []Key {
	out := make([]Key, len(s.keys))
	copy(out, s.keys)
	return out
}
