package api

import (
	"net/http"
	"sync"

	"github.com/star/starseeker/internal/httputil"
)

const kindBusy = "busy"

// pipelineLimiter tracks in-flight interpreter and voice requests per IP
// and globally.
type pipelineLimiter struct {
	mu       sync.Mutex
	inFlight map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newPipelineLimiter(maxPerIP, maxTotal int) *pipelineLimiter {
	if maxPerIP < 1 {
		maxPerIP = 2
	}
	if maxTotal < maxPerIP {
		maxTotal = 8 * maxPerIP
	}
	return &pipelineLimiter{
		inFlight: make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire reports false when the IP or global limit has been reached.
func (l *pipelineLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal || l.inFlight[ip] >= l.maxPerIP {
		return false
	}
	l.inFlight[ip]++
	l.total++
	return true
}

func (l *pipelineLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight[ip]--
	l.total--
	if l.inFlight[ip] <= 0 {
		delete(l.inFlight, ip)
	}
}

func (l *pipelineLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight[ip]
}

// wrap answers 429 instead of calling next when the caller is over its limit.
func (l *pipelineLimiter) wrap(trustProxy bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := httputil.ClientIP(r, trustProxy)
		if !l.acquire(ip) {
			w.Header().Set("Retry-After", "5")
			writeError(w, http.StatusTooManyRequests, kindBusy, "too many concurrent voice requests")
			return
		}
		defer l.release(ip)
		next(w, r)
	}
}
