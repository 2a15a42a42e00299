package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/feridsherif/crms-frontend/internal/config"
)

// NewRedisStore builds a limiter store backed by the redis at url.
func NewRedisStore(url string) (limiter.Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{
		Prefix:   "crms_login_limiter",
		MaxRetry: 3,
	})
}

// LoginRateLimit throttles sign-in attempts per client IP. It passes
// everything through when rate limiting is disabled.
func LoginRateLimit(opts config.RateLimitOptions, logger logrus.FieldLogger) (gin.HandlerFunc, error) {
	if !opts.Enabled {
		return func(c *gin.Context) { c.Next() }, nil
	}
	rate, err := limiter.NewRateFromFormatted(opts.Login)
	if err != nil {
		return nil, errors.Wrapf(err, "parse RATE_LIMIT_LOGIN %q", opts.Login)
	}

	var store limiter.Store
	switch opts.Storage {
	case "redis":
		store, err = NewRedisStore(opts.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
			store = memory.NewStore()
		}
	default:
		store = memory.NewStore()
	}

	return mgin.NewMiddleware(limiter.New(store, rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			abortJSON(c, http.StatusTooManyRequests, "rate_limited", "Too many sign-in attempts. Please try again later.")
		}),
	), nil
}
