package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"secrethobby/backend/internal/logger"
)

const (
	checkTimeout      = 3 * time.Second
	maxGoroutineCount = 10000
)

// Pinger 可探测健康状态的组件
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  Pinger
	logger *zap.Logger
	now    func() time.Time
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store Pinger, log *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger.OrNop(log),
		now:    time.Now,
	}
	hc.addChecks()
	return hc
}

func (hc *HealthChecker) addChecks() {
	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutineCount))

	// 存储不可达时实例不应接收流量，但进程本身仍存活
	hc.health.AddReadinessCheck("store", healthcheck.Timeout(StoreCheck(hc.store), checkTimeout))
}

// Handler 返回健康检查处理器，提供 /live 与 /ready
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveEndpoint 存活探针
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪探针
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}

// CheckHealth 执行一次检查并返回各组件状态
func (hc *HealthChecker) CheckHealth(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	healthy := true
	results := make(map[string]string)
	if err := hc.store.Health(ctx); err != nil {
		hc.logger.Warn("store health check failed", zap.Error(err))
		results["store"] = "ERROR: " + err.Error()
		healthy = false
	} else {
		results["store"] = "OK"
	}
	results["timestamp"] = hc.now().UTC().Format(time.RFC3339)
	return results, healthy
}

// StoreCheck 把存储健康检查适配为 healthcheck.Check
func StoreCheck(store Pinger) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		return store.Health(ctx)
	}
}
