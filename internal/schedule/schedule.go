// Package schedule serializes the ingested guide into the player's JSON
// document: channels in guide order, each carrying its episodes as media
// entries ordered by start time.
package schedule

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/guidepack/guide-pack/internal/guide"
)

// TimeLayout is the startDate format: millisecond precision, always UTC
// with a literal Z suffix.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// ChannelDoc is one channel in the output document.
type ChannelDoc struct {
	Name  string     `json:"name"`
	Media []MediaDoc `json:"media"`
}

// MediaDoc is one episode. The info fields are emitted only when the
// episode carries them; episodeNumber is always present, empty or not.
type MediaDoc struct {
	Name          string  `json:"name"`
	StartDate     string  `json:"startDate"`
	Info          InfoDoc `json:"info"`
	EpisodeNumber string  `json:"episodeNumber"`
}

// InfoDoc holds the optional episode details. Image is the 1-based mosaic
// slot and is emitted whenever a preview was recorded for the episode, so
// a failed fetch or a full sheet can legitimately publish image 0.
type InfoDoc struct {
	Episode *string `json:"episode,omitempty"`
	Plot    *string `json:"plot,omitempty"`
	Image   *int    `json:"image,omitempty"`
}

// Build converts the channel list to the output shape. Episodes starting
// at or past now+hours are cut; the per-channel episode lists are already
// time-sorted, so the cut is a single break point.
func Build(channels []*guide.Channel, now time.Time, hours float64) []ChannelDoc {
	windowEnd := now.Add(time.Duration(hours * float64(time.Hour)))

	docs := make([]ChannelDoc, 0, len(channels))
	for _, ch := range channels {
		doc := ChannelDoc{Name: ch.Name, Media: []MediaDoc{}}
		for _, ep := range ch.Episodes() {
			if !ep.Start().Before(windowEnd) {
				break
			}
			doc.Media = append(doc.Media, mediaDoc(ep))
		}
		docs = append(docs, doc)
	}
	return docs
}

func mediaDoc(ep *guide.Episode) MediaDoc {
	m := MediaDoc{
		Name:          ep.ShowTitle(),
		StartDate:     ep.Start().UTC().Format(TimeLayout),
		EpisodeNumber: ep.EpisodeNum(),
	}
	if sub, ok := ep.SubTitle(); ok {
		m.Info.Episode = &sub
	}
	if plot, ok := ep.Plot(); ok {
		m.Info.Plot = &plot
	}
	if ep.PreviewRecorded() {
		slot := ep.Slot()
		m.Info.Image = &slot
	}
	return m
}

// Encode writes the document as indented JSON.
func Encode(w io.Writer, channels []*guide.Channel, now time.Time, hours float64) error {
	data, err := json.MarshalIndent(Build(channels, now, hours), "", "  ")
	if err != nil {
		return fmt.Errorf("schedule: marshal: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("schedule: write: %w", err)
	}
	return nil
}
