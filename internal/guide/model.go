// Package guide holds the normalized channel/episode model and the XMLTV
// ingestion pipeline that builds it.
package guide

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedChannelIdent means a channel identifier did not contain
	// both a numeric id and a display name.
	ErrMalformedChannelIdent = errors.New("guide: malformed channel identifier")
	// ErrUnknownChannel means a programme referenced a channel id that was
	// never registered.
	ErrUnknownChannel = errors.New("guide: programme references unknown channel")
	// ErrMissingField means a programme lacked a field the XMLTV format
	// guarantees (title, start or stop).
	ErrMissingField = errors.New("guide: required programme field missing")
)

// Episode is one programme occurrence on one channel. Show title and start
// time are mandatory; everything else is optional and tracked as
// present/absent. Fields are populated during ingestion and immutable
// afterwards, except the mosaic slot assigned during packing.
type Episode struct {
	showTitle string
	start     time.Time

	subTitle   string
	hasSub     bool
	plot       string
	hasPlot    bool
	episodeNum string
	hasNum     bool

	previewURL string
	hasURL     bool
	thumbnail  []byte
	hasPreview bool

	slot int // 1-based mosaic slot; 0 = none assigned
}

// NewEpisode constructs an episode with the two mandatory fields.
func NewEpisode(showTitle string, start time.Time) *Episode {
	return &Episode{showTitle: showTitle, start: start}
}

func (e *Episode) ShowTitle() string { return e.showTitle }
func (e *Episode) Start() time.Time  { return e.start }

func (e *Episode) SetSubTitle(s string) { e.subTitle, e.hasSub = s, true }
func (e *Episode) SubTitle() (string, bool) {
	return e.subTitle, e.hasSub
}

func (e *Episode) SetPlot(s string) { e.plot, e.hasPlot = s, true }
func (e *Episode) Plot() (string, bool) {
	return e.plot, e.hasPlot
}

func (e *Episode) SetEpisodeNum(s string) { e.episodeNum, e.hasNum = s, true }

// EpisodeNum returns the raw episode-num text; "" when never set. The
// schedule always emits it, so there is no presence flag to consult.
func (e *Episode) EpisodeNum() string { return e.episodeNum }

// SetPreviewURL records the icon URL. Recording a URL alone does not mark
// the episode preview-bearing; a later failed fetch leaves it without a
// thumbnail but still counts as "a preview was recorded" for serialization.
func (e *Episode) SetPreviewURL(u string) { e.previewURL, e.hasURL = u, true }
func (e *Episode) PreviewURL() (string, bool) {
	return e.previewURL, e.hasURL
}

// SetThumbnail attaches image bytes and flips the preview flag.
func (e *Episode) SetThumbnail(b []byte) { e.thumbnail, e.hasPreview = b, true }
func (e *Episode) Thumbnail() ([]byte, bool) {
	return e.thumbnail, e.thumbnail != nil
}

// HasPreview reports whether a thumbnail or slot was ever attached. Capacity
// limits can leave a preview-bearing episode without a slot; the flag stays
// true regardless.
func (e *Episode) HasPreview() bool { return e.hasPreview }

// PreviewRecorded reports whether any preview information exists: an icon
// URL was seen (even if the fetch failed) or override bytes were attached.
// The serializer keys the image field on this, which can reference slot 0
// when no slot was assigned.
func (e *Episode) PreviewRecorded() bool { return e.hasURL || e.hasPreview }

// AssignSlot records the 1-based mosaic slot for this episode.
func (e *Episode) AssignSlot(i int) { e.slot, e.hasPreview = i, true }
func (e *Episode) Slot() int        { return e.slot }

// Channel is a named, identified collection of episodes. Episodes are read
// back in ascending start-time order regardless of insertion order; the sort
// happens lazily on read and is re-done only after new insertions.
type Channel struct {
	ID   int
	Name string

	episodes []*Episode
	sorted   bool
}

// ParseChannel builds a Channel from an "id name" identifier token.
func ParseChannel(ident string) (*Channel, error) {
	idPart, name, found := strings.Cut(ident, " ")
	if !found || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedChannelIdent, ident)
	}
	id, err := strconv.Atoi(idPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: non-numeric id", ErrMalformedChannelIdent, ident)
	}
	return &Channel{ID: id, Name: name}, nil
}

// Add appends an episode in document order.
func (c *Channel) Add(e *Episode) {
	c.episodes = append(c.episodes, e)
	c.sorted = false
}

// Episodes returns the channel's episodes sorted ascending by start time.
// The sort is stable, so episodes sharing a start time keep document order.
func (c *Channel) Episodes() []*Episode {
	if !c.sorted {
		sort.SliceStable(c.episodes, func(i, j int) bool {
			return c.episodes[i].start.Before(c.episodes[j].start)
		})
		c.sorted = true
	}
	return c.episodes
}
