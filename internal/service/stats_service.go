package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/player4sir/movieapp-sub000/internal/config"
	"github.com/player4sir/movieapp-sub000/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// StatsService 运营统计（只读）
// 只反映已提交的数据，没有正确性义务，结果短暂缓存在 Redis 里。
type StatsService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	statsRepo   *repository.StatsRepository
}

func NewStatsService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *StatsService {
	return &StatsService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		statsRepo:   repository.NewStatsRepository(db),
	}
}

// Stats 一个时间窗口内的运营汇总
type Stats struct {
	Start         time.Time                      `json:"start"`
	End           time.Time                      `json:"end"`
	OrdersByState []*repository.OrderStatusCount `json:"orders_by_status"`
	OrdersByDay   []*repository.DailyOrderCount  `json:"orders_by_day"`
	LedgerByType  []*repository.LedgerTypeSum    `json:"ledger_by_type"`
	CheckinCount  int64                          `json:"checkin_count"`
}

func (s *StatsService) GetStats(ctx context.Context, start, end time.Time) (*Stats, error) {
	cacheKey := fmt.Sprintf("stats:%d:%d", start.Unix(), end.Unix())

	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var stats Stats
			if jsonErr := json.Unmarshal([]byte(cached), &stats); jsonErr == nil {
				return &stats, nil
			}
		}
	}

	stats := &Stats{Start: start, End: end}

	var err error
	stats.OrdersByState, err = s.statsRepo.CountOrdersByStatus(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("统计订单状态失败: %w", err)
	}
	stats.OrdersByDay, err = s.statsRepo.CountOrdersByDay(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("统计每日订单失败: %w", err)
	}
	stats.LedgerByType, err = s.statsRepo.SumLedgerByType(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("统计流水失败: %w", err)
	}
	stats.CheckinCount, err = s.statsRepo.CountCheckins(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("统计签到失败: %w", err)
	}

	if s.redisClient != nil {
		ttl := time.Duration(s.cfg.Business.StatsCacheSeconds) * time.Second
		if ttl > 0 {
			data, _ := json.Marshal(stats)
			if err := s.redisClient.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
				log.Printf("统计结果写缓存失败: %v", err)
			}
		}
	}

	return stats, nil
}
