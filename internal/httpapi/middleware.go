package httpapi

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaimin86/credit-rating-deploy/schema"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map; it is reset when full.
const maxTrackedClients = 10000

var errRateLimited = errors.New("rate limit exceeded")

// clientLimiter keeps one token bucket per client IP.
type clientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*rate.Limiter
	logger  *slog.Logger
}

func newClientLimiter(perSecond float64, burst int, logger *slog.Logger) *clientLimiter {
	return &clientLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: map[string]*rate.Limiter{},
		logger:  logger,
	}
}

func (l *clientLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			l.logger.Info("resetting client rate limiters", "count", len(l.clients))
			clear(l.clients)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.clients[ip] = lim
	}
	return lim
}

// retryAfter is the wait for one token, in whole seconds.
func (l *clientLimiter) retryAfter() string {
	return strconv.Itoa(max(1, int(math.Ceil(1/float64(l.limit)))))
}

// rateLimit rejects requests over the per-client budget with 429.
func rateLimit(l *clientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", l.retryAfter())
			abort(c, http.StatusTooManyRequests, errRateLimited)
			return
		}
		c.Next()
	}
}

// requestLogger logs one line per request, at WARN for client errors and ERROR for server errors.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.Last().Err)
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request rejected", attrs...)
		default:
			logger.Debug("request served", attrs...)
		}
	}
}

// statusFor maps an engine error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case schema.IsTransportError(err):
		return http.StatusServiceUnavailable
	case schema.IsConfigurationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, schema.ErrNoData), errors.Is(err, schema.ErrPartitionNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrNotEditable), errors.Is(err, schema.ErrUnknownKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// abort records err on the context and writes the error body.
func abort(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// fail aborts with the status statusFor picks.
func fail(c *gin.Context, err error) {
	abort(c, statusFor(err), err)
}
