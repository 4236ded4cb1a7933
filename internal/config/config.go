// Package config reads runtime settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultResolution  = 0.5
	DefaultExamplesURL = "https://github.com/pyvista/vtk-data/raw/master/Data/"
)

type Config struct {
	Addr              string
	LogLevel          string
	LogConsole        bool
	CacheSize         int
	DefaultResolution float64
	ExamplesURL       string
	Examples          map[string]string
	DownloadDir       string
	DownloadTimeout   time.Duration
	Watch             bool
	WatchDebounce     time.Duration
}

func FromEnv() Config {
	res := getfloat("MESHDASH_DEFAULT_RESOLUTION", DefaultResolution)
	if res <= 0 || res > 1 {
		res = DefaultResolution
	}

	return Config{
		Addr:              getenv("ADDR", ":8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogConsole:        getbool("LOG_CONSOLE", false),
		CacheSize:         max(getint("MESHDASH_CACHE_SIZE", 0), 0),
		DefaultResolution: res,
		ExamplesURL:       getenv("MESHDASH_EXAMPLES_URL", DefaultExamplesURL),
		Examples:          parseStringMap(getenv("MESHDASH_EXAMPLES", "")),
		DownloadDir:       getenv("MESHDASH_DOWNLOAD_DIR", defaultDownloadDir()),
		DownloadTimeout:   getduration("MESHDASH_DOWNLOAD_TIMEOUT", 30*time.Second),
		Watch:             getbool("MESHDASH_WATCH", false),
		WatchDebounce:     getduration("MESHDASH_WATCH_DEBOUNCE", 500*time.Millisecond),
	}
}

func defaultDownloadDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + string(os.PathSeparator) + "meshdash"
	}
	return os.TempDir() + string(os.PathSeparator) + "meshdash"
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "bunny=https://host/bunny.stl,part=/srv/part.obj" into map
func parseStringMap(s string) map[string]string {
	out := map[string]string{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
