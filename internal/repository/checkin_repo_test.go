package repository

import (
	"context"
	"testing"

	"github.com/player4sir/movieapp-sub000/internal/model"

	"github.com/stretchr/testify/require"
)

func TestCheckinCreateUnique(t *testing.T) {
	db := newTestDB(t)
	repo := NewCheckinRepository(db)
	ctx := context.Background()

	record := &model.CheckinRecord{UserID: 1, CheckinDate: "2024-05-01", Streak: 1, Coins: 10}
	require.NoError(t, repo.Create(ctx, nil, record))

	// (user_id, checkin_date) 唯一键兜住重复签到
	dup := &model.CheckinRecord{UserID: 1, CheckinDate: "2024-05-01", Streak: 1, Coins: 10}
	err := repo.Create(ctx, nil, dup)
	require.ErrorIs(t, err, ErrAlreadyCheckedIn)

	// 另一天、另一个用户都不受影响
	require.NoError(t, repo.Create(ctx, nil, &model.CheckinRecord{UserID: 1, CheckinDate: "2024-05-02", Streak: 2, Coins: 15}))
	require.NoError(t, repo.Create(ctx, nil, &model.CheckinRecord{UserID: 2, CheckinDate: "2024-05-01", Streak: 1, Coins: 10}))
}

func TestCheckinGetByUserAndDate(t *testing.T) {
	db := newTestDB(t)
	repo := NewCheckinRepository(db)
	ctx := context.Background()

	got, err := repo.GetByUserAndDate(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, repo.Create(ctx, nil, &model.CheckinRecord{UserID: 1, CheckinDate: "2024-05-01", Streak: 3, Coins: 20}))

	got, err = repo.GetByUserAndDate(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 3, got.Streak)
}
