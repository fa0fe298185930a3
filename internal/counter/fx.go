package counter

import (
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/samatributa/invoicegen/internal/config"
	"github.com/samatributa/invoicegen/internal/counter/domain"
	"github.com/samatributa/invoicegen/internal/counter/gormstore"
	"github.com/samatributa/invoicegen/internal/counter/memory"
	"github.com/samatributa/invoicegen/internal/counter/redisstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("counter",
	fx.Provide(NewStore),
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	DB     *gorm.DB      `optional:"true"`
	Redis  *redis.Client `optional:"true"`
}

// NewStore selects the counter backend named by COUNTER_BACKEND.
func NewStore(p Params) (domain.Store, error) {
	log := p.Log.Named("counter")

	switch p.Config.CounterBackend {
	case config.CounterBackendRedis:
		if p.Redis == nil {
			return nil, fmt.Errorf("%w: COUNTER_BACKEND=redis requires REDIS_ADDR", domain.ErrNotConfigured)
		}
		log.Info("counter backend selected", zap.String("backend", "redis"))
		return redisstore.NewStore(p.Redis), nil
	case config.CounterBackendMemory:
		if p.Config.IsProduction() {
			log.Warn("in-memory counter store in production; serial watermarks are lost on restart")
		}
		log.Info("counter backend selected", zap.String("backend", "memory"))
		return memory.NewStore(), nil
	default:
		if p.DB == nil {
			return nil, fmt.Errorf("%w: COUNTER_BACKEND=database requires a database", domain.ErrNotConfigured)
		}
		log.Info("counter backend selected", zap.String("backend", "database"))
		return gormstore.NewStore(p.DB), nil
	}
}
