// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/zacanbrcom/auditorium-booking/internal/core"
	"github.com/zacanbrcom/auditorium-booking/internal/kv"
	"github.com/zacanbrcom/auditorium-booking/internal/role"
	"github.com/zacanbrcom/auditorium-booking/internal/store"
)

type Handler struct {
	engineStats func() kv.Stats
	partitions  func(ctx context.Context) ([]store.PartitionStats, error)
	storePing   func(ctx context.Context) error
	redisStats  func() *redis.PoolStats
	redisPing   func(ctx context.Context) error
}

// HandlerConfig wires the stats sources. The redis fields stay nil when
// Redis is not configured.
type HandlerConfig struct {
	EngineStats func() kv.Stats
	Partitions  func(ctx context.Context) ([]store.PartitionStats, error)
	StorePing   func(ctx context.Context) error
	RedisStats  func() *redis.PoolStats
	RedisPing   func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		engineStats: cfg.EngineStats,
		partitions:  cfg.Partitions,
		storePing:   cfg.StorePing,
		redisStats:  cfg.RedisStats,
		redisPing:   cfg.RedisPing,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticate func(role.Role) func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticate(role.Superadmin))

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/store", h.GetStoreStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeStatus, err := h.storeStatus(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	var redisStatus *RedisStatus
	if h.redisPing != nil {
		redisStatus = &RedisStatus{
			Healthy: h.redisPing(ctx) == nil,
			Stats:   h.getRedisStats(),
		}
	}

	core.OK(w, SystemStatsResponse{
		Store:   storeStatus,
		Redis:   redisStatus,
		Runtime: runtimeStats(),
	})
}

func (h *Handler) GetStoreStats(w http.ResponseWriter, r *http.Request) {
	status, err := h.storeStatus(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, status)
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	stats := h.getRedisStats()
	if stats == nil {
		core.NotFound(w, "redis")
		return
	}
	core.OK(w, stats)
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, runtimeStats())
}

func (h *Handler) storeStatus(ctx context.Context) (StoreStatus, error) {
	status := StoreStatus{Healthy: true}

	if h.storePing != nil {
		status.Healthy = h.storePing(ctx) == nil
	}
	if h.engineStats != nil {
		stats := h.engineStats()
		status.Engine = &stats
	}
	if h.partitions != nil {
		partitions, err := h.partitions(ctx)
		if err != nil {
			return StoreStatus{}, err
		}
		status.Partitions = partitions
	}

	return status, nil
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

func runtimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

type SystemStatsResponse struct {
	Store   StoreStatus  `json:"store"`
	Redis   *RedisStatus `json:"redis,omitempty"`
	Runtime RuntimeStats `json:"runtime"`
}

type StoreStatus struct {
	Healthy    bool                   `json:"healthy"`
	Engine     *kv.Stats              `json:"engine,omitempty"`
	Partitions []store.PartitionStats `json:"partitions"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
