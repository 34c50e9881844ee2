// Package convert runs the whole pipeline: load the XMLTV feed, ingest it,
// bake the sprite sheet, and write the schedule JSON plus sheet into the
// output directory.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/guidepack/guide-pack/internal/bundle"
	"github.com/guidepack/guide-pack/internal/config"
	"github.com/guidepack/guide-pack/internal/feed"
	"github.com/guidepack/guide-pack/internal/guide"
	"github.com/guidepack/guide-pack/internal/httpclient"
	"github.com/guidepack/guide-pack/internal/metrics"
	"github.com/guidepack/guide-pack/internal/mosaic"
	"github.com/guidepack/guide-pack/internal/poster"
	"github.com/guidepack/guide-pack/internal/replace"
	"github.com/guidepack/guide-pack/internal/schedule"
	"github.com/guidepack/guide-pack/internal/xmltv"
)

// Report summarizes one conversion run.
type Report struct {
	Channels      int
	Programmes    int
	Included      int
	SkippedWindow int
	FetchFailures int
	Replacements  int
	SlotsUsed     int
	TilesRefused  int
	BadTiles      int
}

// Run executes one conversion at the given reference time. The metrics run
// may be nil.
func Run(ctx context.Context, cfg *config.Config, mrun *metrics.Run, now time.Time) (*Report, error) {
	if cfg.InputURL == "" {
		return nil, fmt.Errorf("convert: no guide source configured")
	}

	out, err := bundle.Open(cfg.OutDir)
	if err != nil {
		return nil, err
	}

	statePath := cfg.FeedStatePath
	if statePath == "" {
		statePath = filepath.Join(cfg.OutDir, "feedstate.json")
	}
	fetcher := feed.NewFetcher(feed.FetcherConfig{
		Client:    httpclient.WithTimeout(cfg.FetchTimeout),
		UserAgent: cfg.UserAgent,
		StatePath: statePath,
		SavedPath: filepath.Join(cfg.OutDir, "guide-source.xml"),
		Metrics:   mrun,
	})
	raw, err := fetcher.Load(ctx, cfg.InputURL)
	if err != nil {
		return nil, err
	}
	log.Printf("convert: guide loaded, %d bytes", len(raw))

	doc, err := xmltv.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	registry, err := replace.LoadFile(cfg.ReplacementsPath, cfg.PostersDir)
	if err != nil {
		return nil, err
	}
	if registry.Len() > 0 {
		log.Printf("convert: %d replacement(s) loaded", registry.Len())
	}

	// A broken cache dir degrades to fetch-only resolution; the run itself
	// can still finish.
	var cache *poster.Cache
	if cfg.CacheDir != "" {
		cache, err = poster.OpenCache(cfg.CacheDir)
		if err != nil {
			log.Printf("convert: poster cache disabled: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}
	resolver := poster.NewResolver(poster.ResolverConfig{
		Cache:      cache,
		Client:     httpclient.WithTimeout(cfg.FetchTimeout),
		UserAgent:  cfg.UserAgent,
		RatePerSec: cfg.PosterRate,
		Burst:      cfg.PosterBurst,
		Metrics:    mrun,
	})

	channels, stats, err := guide.Ingest(ctx, doc, guide.Options{
		Now:       now,
		Hours:     cfg.Hours,
		Overrides: registry,
		Posters:   resolver,
	})
	if err != nil {
		return nil, err
	}
	mrun.ProgrammeIncluded(stats.Included)
	mrun.ProgrammeSkipped(stats.SkippedWindow)

	rep := &Report{
		Channels:      stats.Channels,
		Programmes:    stats.Programmes,
		Included:      stats.Included,
		SkippedWindow: stats.SkippedWindow,
		FetchFailures: stats.FetchFailures,
		Replacements:  registry.Len(),
	}

	packer := mosaic.NewPacker()
	for _, ch := range channels {
		for _, ep := range ch.Episodes() {
			thumb, ok := ep.Thumbnail()
			if !ok {
				continue
			}
			slot, err := packer.Place(ep.ShowTitle(), thumb)
			switch {
			case errors.Is(err, mosaic.ErrFull):
				rep.TilesRefused++
				mrun.MosaicLatchedOut()
			case errors.Is(err, mosaic.ErrBadImage):
				rep.BadTiles++
				log.Printf("convert: %v", err)
			case err != nil:
				return nil, err
			default:
				ep.AssignSlot(slot)
			}
		}
	}
	rep.SlotsUsed = packer.Used()
	mrun.MosaicSlotsUsed(packer.Used())

	var sched bytes.Buffer
	if err := schedule.Encode(&sched, channels, now, cfg.Hours); err != nil {
		return nil, err
	}
	if err := out.WriteFile(bundle.ScheduleFile, sched.Bytes()); err != nil {
		return nil, err
	}

	var sheet bytes.Buffer
	if err := packer.EncodeJPEG(&sheet); err != nil {
		return nil, err
	}
	if err := out.WriteFile(bundle.SheetFile, sheet.Bytes()); err != nil {
		return nil, err
	}

	return rep, nil
}
