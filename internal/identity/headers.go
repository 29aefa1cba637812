package identity

import (
	"math/rand/v2"

	browser "github.com/EDDYCJY/fake-useragent"

	"github.com/corpuslab/quantang-cli/internal/config"
)

// Fingerprint is the rotating part of an identity's header set. Two
// identities with different fingerprints present as different browsers.
type Fingerprint struct {
	UserAgent      string
	AcceptLanguage string
	Referer        string
	CacheControl   string
}

// fallbackUserAgents is used when no user_agents pool is configured and
// the fake-useragent cache is unavailable (offline runs, tests).
var fallbackUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// drawFingerprint picks a fresh header combination from the configured
// pools using the injected random source.
func drawFingerprint(rng *rand.Rand, cfg config.IdentityConfig) Fingerprint {
	return Fingerprint{
		UserAgent:      drawUserAgent(rng, cfg.UserAgents),
		AcceptLanguage: pick(rng, cfg.AcceptLanguages, "zh-TW,zh;q=0.9,en;q=0.8"),
		Referer:        pick(rng, cfg.Referers, "https://ctext.org/"),
		CacheControl:   pick(rng, cfg.CacheControls, "max-age=0"),
	}
}

func drawUserAgent(rng *rand.Rand, pool []string) string {
	if len(pool) > 0 {
		return pool[rng.IntN(len(pool))]
	}
	if ua := browser.Chrome(); ua != "" {
		return ua
	}
	return fallbackUserAgents[rng.IntN(len(fallbackUserAgents))]
}

func pick(rng *rand.Rand, pool []string, def string) string {
	if len(pool) == 0 {
		return def
	}
	return pool[rng.IntN(len(pool))]
}

// multipleFingerprints reports whether the configured pools admit more
// than one header combination. An empty user-agent pool draws from the
// fake-useragent cache or the fallback list, both of which vary; an
// empty secondary pool collapses to a fixed default.
func multipleFingerprints(cfg config.IdentityConfig) bool {
	return len(cfg.UserAgents) != 1 ||
		len(cfg.AcceptLanguages) > 1 ||
		len(cfg.Referers) > 1 ||
		len(cfg.CacheControls) > 1
}

// Headers expands the fingerprint into the full request header set sent
// with every fetch.
func (f Fingerprint) Headers() map[string]string {
	return map[string]string{
		"User-Agent":                f.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
		"Accept-Language":           f.AcceptLanguage,
		"Accept-Encoding":           "gzip, deflate",
		"Referer":                   f.Referer,
		"Cache-Control":             f.CacheControl,
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
	}
}
