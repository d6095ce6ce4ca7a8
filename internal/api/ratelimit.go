package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RateLimiter tracks one token bucket per client IP, evicting idle
// clients through an expiring LRU so memory stays bounded.
type RateLimiter struct {
	cache  *expirable.LRU[string, *rate.Limiter]
	perMin int
}

func NewRateLimiter(perMin, cacheSize int) *RateLimiter {
	return &RateLimiter{
		cache:  expirable.NewLRU[string, *rate.Limiter](cacheSize, nil, 10*time.Minute),
		perMin: perMin,
	}
}

func (l *RateLimiter) limiter(remoteAddr string) *rate.Limiter {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		ip = remoteAddr
	}

	limiter, ok := l.cache.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.cache.Add(ip, limiter)
	}
	return limiter
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := l.limiter(r.RemoteAddr)

		reservation := limiter.Reserve()
		if !reservation.OK() || reservation.Delay() > 0 {
			if reservation.OK() {
				w.Header().Set("Retry-After", strconv.Itoa(int(reservation.Delay().Seconds())+1))
				reservation.Cancel()
			}
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
