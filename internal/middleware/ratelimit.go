package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter ограничивает частоту запросов по IP-адресу клиента в фиксированном окне.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	counters map[string]*ipWindow
}

type ipWindow struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter создаёт ограничитель с указанным потолком запросов на окно.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		counters: make(map[string]*ipWindow),
	}
}

// allow атомарно инкрементирует счётчик для IP. При превышении потолка возвращает
// false и время до сброса окна.
func (l *RateLimiter) allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	win, ok := l.counters[ip]
	if !ok || !now.Before(win.resetAt) {
		l.prune(now)
		win = &ipWindow{resetAt: now.Add(l.window)}
		l.counters[ip] = win
	}

	win.count++
	if win.count > l.limit {
		return false, win.resetAt.Sub(now)
	}

	return true, 0
}

// prune удаляет истёкшие окна, вызывается под мьютексом.
func (l *RateLimiter) prune(now time.Time) {
	for ip, win := range l.counters {
		if !now.Before(win.resetAt) {
			delete(l.counters, ip)
		}
	}
}

// Middleware отклоняет запрос со статусом 429, если потолок окна исчерпан.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := l.allow(clientIP(r))
		if !ok {
			seconds := int(retryAfter / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
