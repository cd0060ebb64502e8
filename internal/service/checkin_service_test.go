package service

import (
	"context"
	"testing"

	"github.com/player4sir/movieapp-sub000/internal/model"

	"github.com/stretchr/testify/require"
)

func TestCheckinFirstDay(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckinService(db, testConfig())
	ctx := context.Background()

	result, err := svc.Checkin(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	require.False(t, result.AlreadyCheckedIn)
	require.Equal(t, 1, result.Streak)
	require.Equal(t, int64(10), result.Reward) // 基础奖励，无连签加成
	require.Equal(t, int64(10), result.NewBalance)

	var entries []model.LedgerEntry
	require.NoError(t, db.Where("user_id = ?", 1).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, model.LedgerTypeCheckin, entries[0].Type)
	require.Equal(t, int64(10), entries[0].Amount)
}

func TestCheckinIdempotentPerDay(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckinService(db, testConfig())
	ctx := context.Background()

	first, err := svc.Checkin(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	require.False(t, first.AlreadyCheckedIn)

	// 同一天第二次签到：无害 no-op，不是错误
	second, err := svc.Checkin(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	require.True(t, second.AlreadyCheckedIn)
	require.Equal(t, first.Streak, second.Streak)
	require.Equal(t, first.Reward, second.Reward)

	// 一条记录、一笔流水、余额只加了一次
	var recordCount, entryCount int64
	require.NoError(t, db.Model(&model.CheckinRecord{}).Count(&recordCount).Error)
	require.NoError(t, db.Model(&model.LedgerEntry{}).Count(&entryCount).Error)
	require.Equal(t, int64(1), recordCount)
	require.Equal(t, int64(1), entryCount)

	var account model.LedgerAccount
	require.NoError(t, db.Where("user_id = ?", 1).First(&account).Error)
	require.Equal(t, first.NewBalance, account.Balance)
}

func TestCheckinStreakContinues(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckinService(db, testConfig())
	ctx := context.Background()

	day1, err := svc.Checkin(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	require.Equal(t, 1, day1.Streak)

	// 昨天签过，连签续上并拿到加成
	day2, err := svc.Checkin(ctx, 1, "2024-05-02")
	require.NoError(t, err)
	require.Equal(t, 2, day2.Streak)
	require.Equal(t, int64(15), day2.Reward) // 10 + 第2天加成5

	// 断签从 1 重新起算
	day5, err := svc.Checkin(ctx, 1, "2024-05-05")
	require.NoError(t, err)
	require.Equal(t, 1, day5.Streak)
	require.Equal(t, int64(10), day5.Reward)
}

func TestCheckinInvalidDate(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckinService(db, testConfig())

	_, err := svc.Checkin(context.Background(), 1, "05/01/2024")
	require.ErrorIs(t, err, ErrCheckinDateInvalid)
}
