// Package httpapi serves the rating engine as a JSON API over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kaimin86/credit-rating-deploy/core"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/staticdata"
)

const shutdownTimeout = 10 * time.Second

// api holds common dependencies for the route handlers.
type api struct {
	baseCfg  *contract.Config
	provider *core.EngineProvider
	mgr      contract.StoreManager
	logger   *slog.Logger
}

// NewRouter builds the gin router without starting it.
// This is exposed for unit testing.
func NewRouter(baseCfg *contract.Config, provider *core.EngineProvider, mgr contract.StoreManager, logger *slog.Logger) *gin.Engine {
	a := &api{baseCfg: baseCfg, provider: provider, mgr: mgr, logger: contract.LoggerOrDefault(logger)}

	r := gin.New()
	// Client IPs come from the socket, never from forwarding headers
	_ = r.SetTrustedProxies(nil)
	r.Use(gin.Recovery())
	r.Use(requestLogger(a.logger))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions}
	r.Use(cors.New(corsCfg))

	r.GET("/health", a.health)

	v1 := r.Group("/api/v1")
	if baseCfg.RateLimit > 0 {
		v1.Use(rateLimit(newClientLimiter(baseCfg.RateLimit, baseCfg.RateBurst, a.logger)))
	}
	v1.GET("/ratings", a.ratingList)
	v1.GET("/ratings/:country", a.rating)
	v1.GET("/constituents/:country", a.constituents)
	v1.GET("/overrides/:country/:year", a.getOverrides)
	v1.PUT("/overrides/:country/:year", a.putOverrides)
	v1.POST("/partitions/:country", a.provision)
	v1.GET("/peers/:bucket", a.peers)
	v1.GET("/history/:country", a.history)
	v1.POST("/reload", a.reload)

	return r
}

// Serve runs the API on cfg.Listen until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	logger := slog.Default()
	static := staticdata.NewCache(cfg.DataDir, logger)
	if err := static.Init(); err != nil {
		return err
	}
	provider := core.NewEngineProvider(static, mgr.GetLedger(), logger)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewRouter(cfg, provider, mgr, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
