// Package codec flattens structured values into the single-column strings
// stored in the catalog and parses them back.
package codec

import (
	"strconv"
	"strings"

	"github.com/voyagen/tvlineup/internal/models"
)

// EncodeVideoInfo flattens a source type and URL into "<type>,<url>".
// Commas inside url need no escaping since decoding splits on the first comma only.
func EncodeVideoInfo(t models.VideoSourceType, url string) string {
	return strconv.Itoa(int(t)) + "," + url
}

// DecodeVideoInfo parses a string produced by EncodeVideoInfo.
func DecodeVideoInfo(s string) (models.VideoSourceType, string, error) {
	tag, url, ok := strings.Cut(s, ",")
	if !ok {
		return 0, "", &FormatError{Field: "video info", Input: s}
	}
	n, err := strconv.Atoi(tag)
	if err != nil {
		return 0, "", &FormatError{Field: "video info", Input: s, Err: err}
	}
	return models.VideoSourceType(n), url, nil
}

var heightToFormat = map[int]string{
	480:  models.VideoFormat480P,
	576:  models.VideoFormat576P,
	720:  models.VideoFormat720P,
	1080: models.VideoFormat1080P,
	2160: models.VideoFormat2160P,
	4320: models.VideoFormat4320P,
}

// VideoFormatForHeight maps a vertical resolution to its video format constant.
func VideoFormatForHeight(height int) (string, bool) {
	f, ok := heightToFormat[height]
	return f, ok
}
