package feed

import (
	"bufio"
	"errors"
	"hash/crc32"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/voyagen/tvlineup/internal/codec"
	"github.com/voyagen/tvlineup/internal/models"
)

var (
	reTvgName   = regexp.MustCompile(`tvg-name="([^"]*)"`)
	reTvgID     = regexp.MustCompile(`tvg-id="([^"]*)"`)
	reTvgChno   = regexp.MustCompile(`tvg-chno="([^"]*)"`)
	reTvgLogo   = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reGroup     = regexp.MustCompile(`group-title="([^"]*)"`)
	reCommaName = regexp.MustCompile(`,([^\n\r\t]*)`)
)

var errNoName = errors.New("no name in EXTINF")

// ParseM3U reads an M3U playlist and returns one channel per stream entry.
//
// A playlist has no broadcast triplet, so the original network id is
// derived from tvg-id (or the channel name) with CRC-32; it stays stable
// across passes as long as the playlist keeps the same tvg-id. Entries that
// repeat a key (HD and SD variants of one channel) are hashed as key#2,
// key#3 and so on in playlist order. The display number is tvg-chno, or the
// 1-based position in the playlist.
func ParseM3U(r io.Reader) ([]models.Channel, error) {
	var channels []models.Channel
	seen := make(map[string]int)
	scanner := bufio.NewScanner(r)
	// Some playlists have very long EXTINF lines.
	const maxSize = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxSize)

	var extinf string
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(strings.ToUpper(line), "#EXTINF"):
			// An EXTINF without a URL line is dropped.
			extinf = line
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
		default:
			if extinf == "" {
				continue
			}
			ch, err := channelFromEXTINF(extinf, trimmed, len(channels)+1, seen)
			extinf = ""
			if err != nil {
				continue
			}
			channels = append(channels, ch)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return channels, nil
}

func channelFromEXTINF(extinf, url string, position int, seen map[string]int) (models.Channel, error) {
	name := matchFirst(reTvgName, extinf)
	if name == "" {
		name = matchFirst(reCommaName, extinf)
	}
	tvgID := matchFirst(reTvgID, extinf)
	if name == "" {
		name = tvgID
	}
	if name == "" {
		return models.Channel{}, errNoName
	}

	key := tvgID
	if key == "" {
		key = name
	}
	seen[key]++
	if n := seen[key]; n > 1 {
		key += "#" + strconv.Itoa(n)
	}
	number := matchFirst(reTvgChno, extinf)
	if number == "" {
		number = strconv.Itoa(position)
	}
	return models.Channel{
		ID:                   models.NoID,
		OriginalNetworkID:    networkID(key),
		DisplayNumber:        number,
		DisplayName:          name,
		Description:          matchFirst(reGroup, extinf),
		Logo:                 matchFirst(reTvgLogo, extinf),
		InternalProviderData: codec.EncodeVideoInfo(sourceTypeFromURL(url), url),
	}, nil
}

// networkID maps a playlist key into the non-negative int32 range.
func networkID(key string) int {
	return int(crc32.ChecksumIEEE([]byte(key)) & 0x7fffffff)
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func sourceTypeFromURL(url string) models.VideoSourceType {
	lower := strings.ToLower(url)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".m3u8"):
		return models.SourceTypeHLS
	case strings.HasSuffix(lower, ".mpd"):
		return models.SourceTypeMPEGDASH
	}
	return models.SourceTypeHTTPProgressive
}
