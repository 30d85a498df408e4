package models

// VideoSourceType tags how a program's video is delivered.
type VideoSourceType int

// Video source types. The values are persisted inside internal provider data
// and must not be renumbered.
const (
	SourceTypeMPEGDASH        VideoSourceType = 0
	SourceTypeHLS             VideoSourceType = 2
	SourceTypeHTTPProgressive VideoSourceType = 3
)

// Valid reports whether t is one of the known source types.
func (t VideoSourceType) Valid() bool {
	switch t {
	case SourceTypeMPEGDASH, SourceTypeHLS, SourceTypeHTTPProgressive:
		return true
	}
	return false
}

// Channel type constants (broadcast standard of the channel).
const (
	TypeOther   = "TYPE_OTHER"
	TypeDVBT    = "TYPE_DVB_T"
	TypeDVBC    = "TYPE_DVB_C"
	TypeDVBS    = "TYPE_DVB_S"
	TypeATSCT   = "TYPE_ATSC_T"
	TypeATSCC   = "TYPE_ATSC_C"
	TypeISDBT   = "TYPE_ISDB_T"
	TypePreview = "TYPE_PREVIEW"
)

// Service type constants.
const (
	ServiceTypeAudioVideo = "SERVICE_TYPE_AUDIO_VIDEO"
	ServiceTypeAudio      = "SERVICE_TYPE_AUDIO"
	ServiceTypeOther      = "SERVICE_TYPE_OTHER"
)

// Video format constants.
const (
	VideoFormat480P  = "VIDEO_FORMAT_480P"
	VideoFormat576P  = "VIDEO_FORMAT_576P"
	VideoFormat720P  = "VIDEO_FORMAT_720P"
	VideoFormat1080P = "VIDEO_FORMAT_1080P"
	VideoFormat2160P = "VIDEO_FORMAT_2160P"
	VideoFormat4320P = "VIDEO_FORMAT_4320P"
)
