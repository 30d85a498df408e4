package models

// NoID marks a Channel whose catalog row id is not known to the caller.
const NoID int64 = -1

// Channel is one entry of a channel lineup, either as supplied by a feed
// (desired state) or as read back from the catalog.
type Channel struct {
	ID                   int64  `json:"id" yaml:"id"`
	InputID              string `json:"input_id,omitempty" yaml:"input_id"`
	OriginalNetworkID    int    `json:"original_network_id" yaml:"original_network_id"`
	TransportStreamID    int    `json:"transport_stream_id,omitempty" yaml:"transport_stream_id"`
	ServiceID            int    `json:"service_id,omitempty" yaml:"service_id"`
	DisplayNumber        string `json:"display_number" yaml:"display_number"`
	DisplayName          string `json:"display_name" yaml:"display_name"`
	Description          string `json:"description,omitempty" yaml:"description"`
	PackageName          string `json:"package_name,omitempty" yaml:"package_name"`
	Type                 string `json:"type,omitempty" yaml:"type"`
	ServiceType          string `json:"service_type,omitempty" yaml:"service_type"`
	VideoFormat          string `json:"video_format,omitempty" yaml:"video_format"`
	VideoHeight          int    `json:"video_height,omitempty" yaml:"video_height"` // input only; derives VideoFormat
	InternalProviderData string `json:"internal_provider_data,omitempty" yaml:"internal_provider_data"`
	Logo                 string `json:"logo,omitempty" yaml:"logo"`
}

// ChannelKey is the projection of a catalog row used for matching:
// row id plus the two business keys.
type ChannelKey struct {
	RowID             int64  `json:"row_id"`
	OriginalNetworkID int    `json:"original_network_id"`
	DisplayNumber     string `json:"display_number"`
}

// HasID reports whether the channel carries a catalog row id. Zero is
// treated like NoID because store-assigned ids start at 1.
func (c Channel) HasID() bool {
	return c.ID > 0
}
