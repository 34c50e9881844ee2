// Command guide-pack converts an XMLTV feed into a schedule JSON document
// plus a sprite sheet of show thumbnails.
//
//	convert  One-run conversion: fetch guide, resolve posters, write guide.json + guide.jpg
//	probe    Fetch and validate the guide without writing outputs; report what a run would do
//	cache    Inspect or prune the poster disk cache
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guidepack/guide-pack/internal/config"
	"github.com/guidepack/guide-pack/internal/convert"
	"github.com/guidepack/guide-pack/internal/feed"
	"github.com/guidepack/guide-pack/internal/guide"
	"github.com/guidepack/guide-pack/internal/httpclient"
	"github.com/guidepack/guide-pack/internal/metrics"
	"github.com/guidepack/guide-pack/internal/poster"
	"github.com/guidepack/guide-pack/internal/xmltv"
)

func main() {
	_ = config.LoadEnvFile(".env")
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[guide-pack] ")

	convertCmd := flag.NewFlagSet("convert", flag.ExitOnError)
	convertIn := convertCmd.String("in", "", "XMLTV source: http(s) URL or file path (default: GUIDE_PACK_INPUT_URL)")
	convertOut := convertCmd.String("out", "", "Output directory for guide.json + guide.jpg (default: GUIDE_PACK_OUT_DIR)")
	convertHours := convertCmd.Float64("hours", 0, "Hours of guide data per channel (default: GUIDE_PACK_HOURS or 8)")
	convertReplacements := convertCmd.String("replacements", "", "Replacements JSON path (default: GUIDE_PACK_REPLACEMENTS)")
	convertPosters := convertCmd.String("posters", "", "Replacement posters dir (default: GUIDE_PACK_POSTERS)")
	convertCache := convertCmd.String("cache", "", "Poster cache dir (default: GUIDE_PACK_CACHE)")
	convertMetrics := convertCmd.String("metrics-listen", "", "Expose /metrics on this address during the run (default: GUIDE_PACK_METRICS_LISTEN)")

	probeCmd := flag.NewFlagSet("probe", flag.ExitOnError)
	probeIn := probeCmd.String("in", "", "XMLTV source to probe (default: GUIDE_PACK_INPUT_URL)")
	probeHours := probeCmd.Float64("hours", 0, "Window to evaluate (default: GUIDE_PACK_HOURS or 8)")

	cacheCmd := flag.NewFlagSet("cache", flag.ExitOnError)
	cacheDir := cacheCmd.String("dir", "", "Poster cache dir (default: GUIDE_PACK_CACHE)")
	cachePrune := cacheCmd.Duration("prune", 0, "Remove entries older than this (e.g. 720h); 0 = stats only")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <convert|probe|cache> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  convert  Fetch guide, resolve posters, write guide.json + guide.jpg\n")
		fmt.Fprintf(os.Stderr, "  probe    Validate the guide and report counts without writing outputs\n")
		fmt.Fprintf(os.Stderr, "  cache    Poster cache stats (-prune 720h to evict old entries)\n")
		os.Exit(1)
	}

	cfg := config.Load()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch os.Args[1] {
	case "convert":
		_ = convertCmd.Parse(os.Args[2:])
		applyString(&cfg.InputURL, *convertIn)
		applyString(&cfg.OutDir, *convertOut)
		applyString(&cfg.ReplacementsPath, *convertReplacements)
		applyString(&cfg.PostersDir, *convertPosters)
		applyString(&cfg.CacheDir, *convertCache)
		applyString(&cfg.MetricsListen, *convertMetrics)
		if *convertHours > 0 {
			cfg.Hours = *convertHours
		}

		mrun := metrics.NewRun()
		if cfg.MetricsListen != "" {
			srv := mrun.Serve(cfg.MetricsListen)
			defer srv.Close()
			log.Printf("metrics on %s/metrics", cfg.MetricsListen)
		}

		started := time.Now()
		rep, err := convert.Run(ctx, cfg, mrun, time.Now())
		if err != nil {
			log.Printf("Convert failed: %v", err)
			os.Exit(1)
		}
		log.Printf("Converted %d channel(s): %d of %d programme(s) in window, %d poster fetch failure(s), %d slot(s) used, took %s",
			rep.Channels, rep.Included, rep.Programmes, rep.FetchFailures, rep.SlotsUsed, time.Since(started).Round(time.Millisecond))
		if rep.TilesRefused > 0 {
			log.Printf("Sprite sheet full: %d title(s) left without a tile", rep.TilesRefused)
		}
		mrun.LogSummary()

	case "probe":
		_ = probeCmd.Parse(os.Args[2:])
		applyString(&cfg.InputURL, *probeIn)
		if *probeHours > 0 {
			cfg.Hours = *probeHours
		}
		if cfg.InputURL == "" {
			log.Printf("Probe failed: no guide source (use -in or GUIDE_PACK_INPUT_URL)")
			os.Exit(1)
		}

		fetcher := feed.NewFetcher(feed.FetcherConfig{
			Client:    httpclient.WithTimeout(cfg.FetchTimeout),
			UserAgent: cfg.UserAgent,
		})
		raw, err := fetcher.Load(ctx, cfg.InputURL)
		if err != nil {
			log.Printf("Probe failed: %v", err)
			os.Exit(1)
		}
		doc, err := xmltv.Decode(bytes.NewReader(raw))
		if err != nil {
			log.Printf("Probe failed: %v", err)
			os.Exit(1)
		}
		// No overrides, no poster source: validation and counting only.
		_, stats, err := guide.Ingest(ctx, doc, guide.Options{Now: time.Now(), Hours: cfg.Hours})
		if err != nil {
			log.Printf("Probe failed: %v", err)
			os.Exit(1)
		}
		log.Printf("Guide OK: %d channel(s), %d programme(s), %d inside the next %.4gh window",
			stats.Channels, stats.Programmes, stats.Included, cfg.Hours)

	case "cache":
		_ = cacheCmd.Parse(os.Args[2:])
		applyString(&cfg.CacheDir, *cacheDir)
		c, err := poster.OpenCache(cfg.CacheDir)
		if err != nil {
			log.Printf("Cache open failed: %v", err)
			os.Exit(1)
		}
		defer c.Close()

		if *cachePrune > 0 {
			removed, err := c.Prune(*cachePrune, time.Now())
			if err != nil {
				log.Printf("Prune failed: %v", err)
				os.Exit(1)
			}
			log.Printf("Pruned %d entrie(s) older than %s", removed, *cachePrune)
		}
		st, err := c.Stats()
		if err != nil {
			log.Printf("Cache stats failed: %v", err)
			os.Exit(1)
		}
		log.Printf("Cache %s: %d poster(s), %.1f MiB, %d indexed", cfg.CacheDir, st.Entries, float64(st.Bytes)/(1<<20), st.Indexed)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}

// applyString overrides dst when the flag was set.
func applyString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
