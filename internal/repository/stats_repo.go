package repository

import (
	"context"
	"time"

	"github.com/player4sir/movieapp-sub000/internal/model"

	"gorm.io/gorm"
)

// StatsRepository 只读聚合查询
// 统计只反映已提交的数据，没有任何写路径和并发义务。
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// OrderStatusCount 某状态订单数量及金额合计
type OrderStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Price  int64  `json:"price"` // 金额合计，单位：分
}

func (r *StatsRepository) CountOrdersByStatus(ctx context.Context, start, end time.Time) ([]*OrderStatusCount, error) {
	var rows []*OrderStatusCount
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(price), 0) AS price").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// DailyOrderCount 按日订单量
type DailyOrderCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
	Price int64  `json:"price"`
}

func (r *StatsRepository) CountOrdersByDay(ctx context.Context, start, end time.Time) ([]*DailyOrderCount, error) {
	var rows []*DailyOrderCount
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("DATE(created_at) AS day, COUNT(*) AS count, COALESCE(SUM(price), 0) AS price").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error
	return rows, err
}

// LedgerTypeSum 按流水类型的硬币合计
type LedgerTypeSum struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
	Count  int64  `json:"count"`
}

func (r *StatsRepository) SumLedgerByType(ctx context.Context, start, end time.Time) ([]*LedgerTypeSum, error) {
	var rows []*LedgerTypeSum
	err := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Select("type, COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("type").
		Scan(&rows).Error
	return rows, err
}

func (r *StatsRepository) CountCheckins(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CheckinRecord{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	return count, err
}
