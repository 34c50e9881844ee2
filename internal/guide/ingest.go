package guide

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/guidepack/guide-pack/internal/xmltv"
)

// OverrideSource supplies operator replacements by exact show title.
type OverrideSource interface {
	// Lookup returns the override plot and poster bytes for an exact show
	// title match. ok is false when no replacement is registered.
	Lookup(showTitle string) (plot string, poster []byte, ok bool)
}

// PosterSource resolves a preview URL to thumbnail bytes, consulting its
// caches before the network. An error is per-episode recoverable: the
// pipeline logs it and moves on without a thumbnail.
type PosterSource interface {
	Resolve(ctx context.Context, url string) ([]byte, error)
}

// Options drive one ingestion run.
type Options struct {
	Now   time.Time
	Hours float64 // window size; programmes starting at/after Now+Hours are skipped

	Overrides OverrideSource // may be nil: no replacements
	Posters   PosterSource   // may be nil: episodes get no thumbnails
}

// Stats counts what happened during ingestion.
type Stats struct {
	Channels      int
	Programmes    int
	Included      int
	SkippedWindow int
	FetchFailures int
}

// Ingest walks the decoded guide and builds the channel list in document
// order. Programmes outside the time window are skipped; schema violations
// (bad channel ident, unknown channel reference, missing title/start/stop)
// abort the run — a guide that breaks its own format has no safe partial
// result.
func Ingest(ctx context.Context, doc *xmltv.TV, opts Options) ([]*Channel, Stats, error) {
	var stats Stats

	channels := make([]*Channel, 0, len(doc.Channels))
	byID := make(map[int]*Channel, len(doc.Channels))
	for _, xc := range doc.Channels {
		ch, err := ParseChannel(xc.DisplayName())
		if err != nil {
			return nil, stats, err
		}
		channels = append(channels, ch)
		if _, dup := byID[ch.ID]; !dup {
			byID[ch.ID] = ch
		}
	}
	stats.Channels = len(channels)

	windowEnd := opts.Now.Add(time.Duration(opts.Hours * float64(time.Hour)))

	for i, xp := range doc.Programmes {
		stats.Programmes++

		channelID, err := parseChannelRef(xp.Channel)
		if err != nil {
			return nil, stats, fmt.Errorf("programme %d: %w", i, err)
		}
		title := xp.Title()
		if title == "" {
			return nil, stats, fmt.Errorf("programme %d: %w: title", i, ErrMissingField)
		}
		if xp.Start == "" {
			return nil, stats, fmt.Errorf("programme %d (%s): %w: start", i, title, ErrMissingField)
		}
		if xp.Stop == "" {
			return nil, stats, fmt.Errorf("programme %d (%s): %w: stop", i, title, ErrMissingField)
		}
		start, err := xmltv.ParseTime(xp.Start)
		if err != nil {
			return nil, stats, fmt.Errorf("programme %d (%s): %w", i, title, err)
		}
		stop, err := xmltv.ParseTime(xp.Stop)
		if err != nil {
			return nil, stats, fmt.Errorf("programme %d (%s): %w", i, title, err)
		}

		// Window filter: already-finished programmes and programmes starting
		// beyond the horizon are skipped.
		if stop.Before(opts.Now) || !start.Before(windowEnd) {
			stats.SkippedWindow++
			continue
		}

		ch, ok := byID[channelID]
		if !ok {
			return nil, stats, fmt.Errorf("programme %d (%s): %w: id %d", i, title, ErrUnknownChannel, channelID)
		}

		ep := NewEpisode(title, start)

		if plot, poster, ok := lookupOverride(opts.Overrides, title); ok {
			// A title match overrides the icon URL entirely, even when one
			// is present, and its plot is not overridden by desc.
			ep.SetPlot(plot)
			ep.SetThumbnail(poster)
		} else {
			if src, ok := xp.IconSrc(); ok {
				ep.SetPreviewURL(src)
				if opts.Posters != nil {
					bytes, err := opts.Posters.Resolve(ctx, src)
					if err != nil {
						stats.FetchFailures++
						log.Printf("guide: poster for %q: %v", title, err)
					} else {
						ep.SetThumbnail(bytes)
					}
				}
			}
			if desc, ok := xp.Desc(); ok {
				ep.SetPlot(desc)
			}
		}

		if sub, ok := xp.SubTitle(); ok {
			ep.SetSubTitle(sub)
		}
		if num, ok := xp.EpisodeNum(); ok {
			ep.SetEpisodeNum(num)
		}

		ch.Add(ep)
		stats.Included++
	}

	return channels, stats, nil
}

func lookupOverride(src OverrideSource, title string) (string, []byte, bool) {
	if src == nil {
		return "", nil, false
	}
	return src.Lookup(title)
}

// parseChannelRef extracts the numeric channel id from a programme channel
// attribute of the form "<id>.<suffix>" (or a bare "<id>").
func parseChannelRef(ref string) (int, error) {
	idPart, _, _ := strings.Cut(ref, ".")
	id, err := strconv.Atoi(idPart)
	if err != nil {
		return 0, fmt.Errorf("%w: channel attribute %q", ErrMalformedChannelIdent, ref)
	}
	return id, nil
}
