package models

import "strings"

// Rating is a content rating such as "com.android.tv/US_TV/US_TV_PG/US_TV_D".
type Rating struct {
	Domain     string   `json:"domain"`
	System     string   `json:"system"`
	Rating     string   `json:"rating"`
	SubRatings []string `json:"sub_ratings,omitempty"`
}

// Flatten returns the slash-delimited descriptor for r.
func (r Rating) Flatten() string {
	parts := make([]string, 0, 3+len(r.SubRatings))
	parts = append(parts, r.Domain, r.System, r.Rating)
	parts = append(parts, r.SubRatings...)
	return strings.Join(parts, "/")
}
