package repository

import (
	"fmt"
	"testing"

	"github.com/player4sir/movieapp-sub000/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 每个测试一个独立的内存库，避免用例间互相污染
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接让并发写在连接池上排队，SQLite 不会报 database is locked
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Order{},
		&model.LedgerAccount{},
		&model.LedgerEntry{},
		&model.CheckinRecord{},
		&model.Membership{},
		&model.MembershipAdjustLog{},
		&model.OutboxMessage{},
	))

	return db
}

func newPendingOrder(userID int64, orderNo string) *model.Order {
	return &model.Order{
		OrderNo:     orderNo,
		UserID:      userID,
		ProductType: model.ProductTypeCoin,
		CoinAmount:  100,
		Price:       1000,
		Status:      model.OrderStatusPending,
		PaymentType: model.PaymentTypeAlipay,
		RemarkCode:  "123456",
	}
}
