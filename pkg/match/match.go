// Package match decides whether a candidate track from one provider is an
// acceptable substitute for a title/artist pair requested from another.
package match

import (
	"strings"

	"melodex/internal/core"
)

// Gate reports whether candidate is a good enough match for the wanted
// title/artist pair. A candidate with no playable reference never matches.
// Otherwise a case-insensitive substring match in either direction on the
// title OR the artist is sufficient; the leniency tolerates "feat." suffixes
// and localized artist names across providers.
func Gate(candidate core.Track, wantedTitle, wantedArtist string) bool {
	if !candidate.Playable() {
		return false
	}

	titleLower := strings.ToLower(wantedTitle)
	artistLower := strings.ToLower(wantedArtist)
	candTitle := strings.ToLower(candidate.Title)
	candArtist := strings.ToLower(candidate.Artist)

	titleMatch := strings.Contains(candTitle, titleLower) || strings.Contains(titleLower, candTitle)
	artistMatch := strings.Contains(candArtist, artistLower) || strings.Contains(artistLower, candArtist)

	return titleMatch || artistMatch
}
