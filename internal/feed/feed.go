// Package feed loads channel lineups from lineup documents (YAML or JSON)
// and M3U playlists, from a local path or an http(s) URL.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voyagen/tvlineup/internal/codec"
	"github.com/voyagen/tvlineup/internal/models"
)

// Lineup is a desired channel list for one input source plus the EPG
// entries it carries, keyed by channel display number.
type Lineup struct {
	InputID  string
	Channels []models.Channel
	Programs map[string][]models.Program
}

// ProgramCount returns the number of programs across all channels.
func (l *Lineup) ProgramCount() int {
	n := 0
	for _, p := range l.Programs {
		n += len(p)
	}
	return n
}

type document struct {
	InputID  string       `yaml:"input_id"`
	Channels []channelDoc `yaml:"channels"`
}

type channelDoc struct {
	models.Channel `yaml:",inline"`
	Video          *videoDoc    `yaml:"video"`
	Programs       []programDoc `yaml:"programs"`
}

type videoDoc struct {
	Type string `yaml:"type"`
	URL  string `yaml:"url"`
}

type programDoc struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Start       string `yaml:"start"`
	End         string `yaml:"end"`
	Ratings     string `yaml:"ratings"`
	PosterArt   string `yaml:"poster_art"`
}

var sourceTypes = map[string]models.VideoSourceType{
	"dash":             models.SourceTypeMPEGDASH,
	"mpeg_dash":        models.SourceTypeMPEGDASH,
	"hls":              models.SourceTypeHLS,
	"progressive":      models.SourceTypeHTTPProgressive,
	"http_progressive": models.SourceTypeHTTPProgressive,
}

var errSharedNumber = errors.New("display number shared by more than one channel")

// Load reads the lineup at location. Locations starting with http:// or
// https:// are fetched; anything else is read from disk.
func Load(ctx context.Context, location, userAgent string, timeout time.Duration) (*Lineup, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		data, err = fetch(ctx, location, userAgent, timeout)
	} else {
		data, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", location, err)
	}
	return Parse(data, location)
}

// Parse decodes a lineup document. name is only used to recognise M3U
// playlists by extension; content starting with #EXTM3U is also treated as
// M3U.
func Parse(data []byte, name string) (*Lineup, error) {
	ext := strings.ToLower(path.Ext(name))
	if ext == ".m3u" || ext == ".m3u8" || bytes.HasPrefix(bytes.TrimSpace(data), []byte("#EXTM3U")) {
		channels, err := ParseM3U(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("ParseM3U: %w", err)
		}
		return &Lineup{Channels: channels, Programs: map[string][]models.Program{}}, nil
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}
	l := &Lineup{
		InputID:  doc.InputID,
		Channels: make([]models.Channel, 0, len(doc.Channels)),
		Programs: make(map[string][]models.Program),
	}
	for _, cd := range doc.Channels {
		ch := cd.Channel
		if ch.ID == 0 {
			ch.ID = models.NoID
		}
		if cd.Video != nil {
			t, err := sourceType(cd.Video.Type)
			if err != nil {
				return nil, err
			}
			ch.InternalProviderData = codec.EncodeVideoInfo(t, cd.Video.URL)
		}
		l.Channels = append(l.Channels, ch)

		for _, pd := range cd.Programs {
			p, err := pd.program()
			if err != nil {
				return nil, fmt.Errorf("channel %q: %w", ch.DisplayNumber, err)
			}
			l.Programs[ch.DisplayNumber] = append(l.Programs[ch.DisplayNumber], p)
		}
	}
	if err := l.checkProgramNumbers(); err != nil {
		return nil, err
	}
	return l, nil
}

// checkProgramNumbers rejects a lineup where programs are keyed by a display
// number that more than one channel uses, since the schedule could not be
// told apart.
func (l *Lineup) checkProgramNumbers() error {
	counts := make(map[string]int, len(l.Channels))
	for _, ch := range l.Channels {
		counts[ch.DisplayNumber]++
	}
	for number, programs := range l.Programs {
		if len(programs) > 0 && counts[number] > 1 {
			return &codec.FormatError{Field: "display number", Input: number, Err: errSharedNumber}
		}
	}
	return nil
}

// sourceType maps a lineup video type to its tag. Both names ("hls") and
// the persisted numeric tag ("2") are accepted.
func sourceType(name string) (models.VideoSourceType, error) {
	if t, ok := sourceTypes[strings.ToLower(name)]; ok {
		return t, nil
	}
	if n, err := strconv.Atoi(name); err == nil {
		if t := models.VideoSourceType(n); t.Valid() {
			return t, nil
		}
	}
	return 0, &codec.UnknownKeyError{Kind: "video source type", Key: name}
}

func (pd programDoc) program() (models.Program, error) {
	start, err := parseTime("start", pd.Start)
	if err != nil {
		return models.Program{}, err
	}
	end, err := parseTime("end", pd.End)
	if err != nil {
		return models.Program{}, err
	}
	if !end.After(start) {
		return models.Program{}, &codec.FormatError{Field: "end", Input: pd.End, Err: fmt.Errorf("not after start %s", pd.Start)}
	}
	ratings, err := codec.DecodeRatings(pd.Ratings)
	if err != nil {
		return models.Program{}, err
	}
	return models.Program{
		Title:          pd.Title,
		Description:    pd.Description,
		StartTime:      start,
		EndTime:        end,
		ContentRatings: ratings,
		PosterArtURL:   pd.PosterArt,
	}, nil
}

func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &codec.FormatError{Field: field, Input: s, Err: err}
	}
	return t.UTC(), nil
}
