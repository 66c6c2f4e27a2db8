package middleware

import (
	"sync"

	"github.com/akolanti/LayoutAPI/internal/config"
	"golang.org/x/time/rate"
)

type middlewareSettings struct {
	apiKey         string
	allowedOrigins []string
	limiter        *IPRateLimiter
}

var settings = middlewareSettings{
	allowedOrigins: []string{"*"},
	limiter:        NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND),
}

// Init applies the server section of the configuration. Call it before serving.
func Init(cfg config.ServerConfig) {
	settings = middlewareSettings{
		apiKey:         cfg.APIKey,
		allowedOrigins: cfg.AllowedOrigins,
		limiter:        NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst),
	}
}

type IPRateLimiter struct {
	ips       map[string]*rate.Limiter
	mu        sync.RWMutex
	rateLimit rate.Limit
	burstRate int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{ips: make(map[string]*rate.Limiter), rateLimit: r, burstRate: b}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.ips[ip]
	i.mu.RUnlock()
	if exists {
		return limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if limiter, exists = i.ips[ip]; !exists {
		limiter = rate.NewLimiter(i.rateLimit, i.burstRate)
		i.ips[ip] = limiter
	}
	return limiter
}

//TODO: move the per-IP limiters to redis once more than one instance serves traffic
