package models

import "time"

// Program is one EPG entry on a channel. Programs are read-only for the
// reconciler; they are loaded alongside a lineup and served by lookups.
type Program struct {
	ID                   int64     `json:"id,omitempty"`
	ChannelID            int64     `json:"channel_id"`
	Title                string    `json:"title"`
	Description          string    `json:"description,omitempty"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	ContentRatings       []Rating  `json:"content_ratings,omitempty"`
	InternalProviderData string    `json:"internal_provider_data,omitempty"`
	PosterArtURL         string    `json:"poster_art_url,omitempty"`
}

// Airing reports whether now falls inside the half-open interval [start, end).
func (p Program) Airing(now time.Time) bool {
	return !now.Before(p.StartTime) && now.Before(p.EndTime)
}
