package handlers

import (
	"context"
	"strconv"

	"github.com/devlinkhq/backend/internal/apperrors"
	"github.com/devlinkhq/backend/internal/cache"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// getUserIDFromContext returns the local user ID resolved by the auth
// middleware, or 0 when the caller has no profile yet.
func getUserIDFromContext(c echo.Context) uint {
	if id, ok := c.Get("userID").(uint); ok {
		return id
	}
	return 0
}

// httpError maps a core error onto its HTTP status.
func httpError(err error) *echo.HTTPError {
	return echo.NewHTTPError(apperrors.HTTPStatus(err), err.Error())
}

// invalidatePatterns evicts the given resource classes after a committed
// write. A failed invalidation is logged, never surfaced: the write already
// happened, and a stale cache entry expires on its own.
func invalidatePatterns(ctx context.Context, c *cache.Cache, logger *zap.Logger, patterns ...string) {
	for _, pattern := range patterns {
		if err := c.Invalidate(ctx, pattern); err != nil {
			logger.Warn("cache invalidation failed",
				zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

// pageParams parses skip/limit query parameters with a default page size.
func pageParams(c echo.Context, defaultLimit int) (skip, limit int) {
	skip, _ = strconv.Atoi(c.QueryParam("skip"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return skip, limit
}
