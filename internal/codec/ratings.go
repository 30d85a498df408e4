package codec

import (
	"regexp"
	"strings"

	"github.com/voyagen/tvlineup/internal/models"
)

var reRatingSep = regexp.MustCompile(`\s*,\s*`)

// EncodeRatings comma-joins the flattened descriptors of ratings, in order.
// An empty input yields "", which callers store as NULL.
func EncodeRatings(ratings []models.Rating) string {
	if len(ratings) == 0 {
		return ""
	}
	parts := make([]string, len(ratings))
	for i, r := range ratings {
		parts[i] = r.Flatten()
	}
	return strings.Join(parts, ",")
}

// DecodeRatings parses a string produced by EncodeRatings.
// It returns nil for an empty string.
func DecodeRatings(s string) ([]models.Rating, error) {
	if s == "" {
		return nil, nil
	}
	pieces := reRatingSep.Split(s, -1)
	out := make([]models.Rating, len(pieces))
	for i, p := range pieces {
		r, err := ParseRating(p)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// ParseRating parses a single "domain/system/rating[/sub...]" descriptor.
func ParseRating(descriptor string) (models.Rating, error) {
	parts := strings.Split(descriptor, "/")
	if len(parts) < 3 {
		return models.Rating{}, &UnknownKeyError{Kind: "rating", Key: descriptor}
	}
	for _, p := range parts {
		if p == "" {
			return models.Rating{}, &UnknownKeyError{Kind: "rating", Key: descriptor}
		}
	}
	r := models.Rating{Domain: parts[0], System: parts[1], Rating: parts[2]}
	if len(parts) > 3 {
		r.SubRatings = append([]string(nil), parts[3:]...)
	}
	return r, nil
}
