package episode

import (
	"encoding/json"

	"loreline/internal/campaign"
	"loreline/internal/segment"
)

// Info is the per-episode header of an output document.
type Info struct {
	Number          int             `json:"number"`
	Title           string          `json:"title"`
	AirDate         json.RawMessage `json:"air_date"`
	DurationSeconds json.RawMessage `json:"duration_seconds"`
	YouTubeURL      string          `json:"youtube_url"`
	TotalSegments   int             `json:"total_segments"`
	TotalChapters   int             `json:"total_chapters"`
}

// Document is the structured output written for one episode.
type Document struct {
	Campaign campaign.Meta         `json:"campaign"`
	Episode  Info                  `json:"episode"`
	Cast     []campaign.CastMember `json:"cast"`
	Segments []segment.Segment     `json:"segments"`
}

// BuildDocument assembles the output document from normalized segments.
func BuildDocument(profile *campaign.Profile, unit Unit, src Source, segments []segment.Segment, totalChapters int) Document {
	cast := append([]campaign.CastMember{}, profile.Cast...)
	if segments == nil {
		segments = []segment.Segment{}
	}
	return Document{
		Campaign: profile.Campaign,
		Episode: Info{
			Number:          unit.Episode,
			Title:           unit.Title,
			AirDate:         src.PublishDate,
			DurationSeconds: src.DurationSeconds,
			YouTubeURL:      profile.EpisodeURL(unit.Episode),
			TotalSegments:   len(segments),
			TotalChapters:   totalChapters,
		},
		Cast:     cast,
		Segments: segments,
	}
}
