// Package playlist provides the Playlist domain entity.
package playlist

// Playlist represents the synchronized Spotify playlist.
type Playlist struct {
	ID          string   // Spotify Playlist ID
	Description string   // Playlist description, carries the last sync time
	TrackIDs    []string // Track IDs in playlist order, may contain duplicates
}

// Contains reports whether the playlist holds the track.
func (p *Playlist) Contains(trackID string) bool {
	for _, id := range p.TrackIDs {
		if id == trackID {
			return true
		}
	}
	return false
}

// IDSet returns the playlist's track IDs as a membership set.
func (p *Playlist) IDSet() map[string]bool {
	set := make(map[string]bool, len(p.TrackIDs))
	for _, id := range p.TrackIDs {
		set[id] = true
	}
	return set
}

// Len returns the number of playlist entries, duplicates included.
func (p *Playlist) Len() int {
	return len(p.TrackIDs)
}
