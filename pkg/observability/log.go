package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes layout, cache and server events to a logger at debug
// level. Degradations are logged as warnings.
type LogHooks struct {
	Logger *log.Logger
}

func (h LogHooks) OnLayoutStart(_ context.Context, trigger string, groups, bands int) {
	h.Logger.Debug("layout start", "trigger", trigger, "groups", groups, "bands", bands)
}

func (h LogHooks) OnLayoutComplete(_ context.Context, trigger string, results int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("layout failed", "trigger", trigger, "err", err)
		return
	}
	h.Logger.Debug("layout complete", "trigger", trigger, "results", results, "took", d.Round(time.Microsecond))
}

func (h LogHooks) OnLayoutSuperseded(_ context.Context, trigger string) {
	h.Logger.Debug("layout superseded", "trigger", trigger)
}

func (h LogHooks) OnDegraded(_ context.Context, province, strategy, reason string) {
	h.Logger.Warn("layout degraded", "province", province, "strategy", strategy, "reason", reason)
}

func (h LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h LogHooks) OnRequest(_ context.Context, method, route string) {
	h.Logger.Debug("request", "method", method, "route", route)
}

func (h LogHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.Logger.Info("response", "method", method, "route", route, "status", status, "took", d.Round(time.Microsecond))
}

var (
	_ LayoutHooks = LogHooks{}
	_ CacheHooks  = LogHooks{}
	_ ServerHooks = LogHooks{}
)
