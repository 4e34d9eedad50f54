package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/finflow/backend/src/logger"
)

const logoCacheTTL = 24 * time.Hour

type logoServiceImpl struct {
	urlFormat string
	cache     *cache.Cache
}

// NewLogoService formats urlFormat (one %s, the company's web host) into a logo URL.
func NewLogoService(urlFormat string) LogoService {
	return &logoServiceImpl{
		urlFormat: urlFormat,
		cache:     cache.New(logoCacheTTL, time.Hour),
	}
}

// LogoURL never fails; an unknown website yields "". Misses are cached for an hour only.
func (s *logoServiceImpl) LogoURL(ctx context.Context, symbol, website string) string {
	if cached, ok := s.cache.Get(symbol); ok {
		return cached.(string)
	}
	logo := ""
	if host := websiteHost(website); host != "" && s.urlFormat != "" {
		logo = fmt.Sprintf(s.urlFormat, host)
	}
	if logo == "" {
		logger.FromContext(ctx).Debug("No logo for symbol", "symbol", symbol)
		s.cache.Set(symbol, logo, time.Hour)
		return logo
	}
	s.cache.SetDefault(symbol, logo)
	return logo
}

func websiteHost(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
