package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/player4sir/movieapp-sub000/internal/config"
	"github.com/player4sir/movieapp-sub000/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
	// 单连接让并发事务在连接池上排队，SQLite 不会报 database is locked
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

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				OrderReviewed: "test.order.reviewed",
				CoinCredited:  "test.coin.credited",
			},
		},
		Business: config.BusinessConfig{
			CheckinBaseReward: 10,
			CheckinStreakCap:  7,
			MaxRetryCount:     5,
		},
	}
}

// createCoinOrder 建一笔待审核的硬币订单
func createCoinOrder(t *testing.T, db *gorm.DB, userID, coins, price int64) *model.Order {
	t.Helper()
	svc := NewOrderService(db, testConfig())
	order, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:      userID,
		ProductType: model.ProductTypeCoin,
		CoinAmount:  coins,
		Price:       price,
		PaymentType: model.PaymentTypeAlipay,
	})
	require.NoError(t, err)
	return order
}

func createMembershipOrder(t *testing.T, db *gorm.DB, userID int64, level, days int, price int64) *model.Order {
	t.Helper()
	svc := NewOrderService(db, testConfig())
	order, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID:          userID,
		ProductType:     model.ProductTypeMembership,
		MembershipLevel: level,
		MembershipDays:  days,
		Price:           price,
		PaymentType:     model.PaymentTypeBank,
	})
	require.NoError(t, err)
	return order
}
