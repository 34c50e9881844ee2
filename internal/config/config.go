package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the converter settings.
// Load from env (GUIDE_PACK_*) and/or a .env file; the convert subcommand's
// flags override whatever Load produced.
type Config struct {
	// Guide source
	InputURL string // XMLTV source: http(s) URL or local file path. Required.

	// Paths
	OutDir           string // guide.json + guide.jpg land here (default ./guide)
	ReplacementsPath string // replacements JSON file (default ./replacements.json)
	PostersDir       string // replacement poster images (default ./replacementposters)
	CacheDir         string // poster disk cache (default ./cachedposters)
	FeedStatePath    string // conditional-GET checkpoint; "" = <OutDir>/feedstate.json

	// Conversion window
	Hours float64 // hours of guide data to emit per channel (default 8)

	// Poster fetching
	FetchTimeout time.Duration // per-request timeout for poster and guide fetches
	PosterRate   float64       // poster fetches per second against upstream (default 4)
	PosterBurst  int           // rate limiter burst (default 2)

	// Observability
	MetricsListen string // e.g. ":9464"; "" = no metrics endpoint
	UserAgent     string
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load()
// to use a .env file.
func Load() *Config {
	c := &Config{
		InputURL:         os.Getenv("GUIDE_PACK_INPUT_URL"),
		OutDir:           getEnv("GUIDE_PACK_OUT_DIR", "./guide"),
		ReplacementsPath: getEnv("GUIDE_PACK_REPLACEMENTS", "./replacements.json"),
		PostersDir:       getEnv("GUIDE_PACK_POSTERS", "./replacementposters"),
		CacheDir:         getEnv("GUIDE_PACK_CACHE", "./cachedposters"),
		FeedStatePath:    os.Getenv("GUIDE_PACK_FEED_STATE"),
		Hours:            getEnvFloat("GUIDE_PACK_HOURS", 8),
		FetchTimeout:     getEnvDuration("GUIDE_PACK_FETCH_TIMEOUT", 45*time.Second),
		PosterRate:       getEnvFloat("GUIDE_PACK_POSTER_RATE", 4),
		PosterBurst:      getEnvInt("GUIDE_PACK_POSTER_BURST", 2),
		MetricsListen:    os.Getenv("GUIDE_PACK_METRICS_LISTEN"),
		UserAgent:        getEnv("GUIDE_PACK_USER_AGENT", "GuidePack/1.0"),
	}
	if c.Hours <= 0 {
		c.Hours = 8
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 45 * time.Second
	}
	if c.PosterRate <= 0 {
		c.PosterRate = 4
	}
	if c.PosterBurst <= 0 {
		c.PosterBurst = 2
	}
	return c
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return defaultVal
}
