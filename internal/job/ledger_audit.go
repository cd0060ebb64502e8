package job

import (
	"context"
	"log"
	"time"

	"github.com/player4sir/movieapp-sub000/internal/config"
	"github.com/player4sir/movieapp-sub000/internal/repository"
	"github.com/player4sir/movieapp-sub000/internal/service"

	"gorm.io/gorm"
)

// LedgerAuditJob 对账巡检任务
// 周期性抽查最近有流水的账户，校验 sum(流水) == 余额。
// 对不上说明某条路径破坏了"迁移+入账同事务"的约定，
// 打 [ALERT] 日志大声报警，绝不静默吞掉。
type LedgerAuditJob struct {
	db             *gorm.DB
	ledgerRepo     *repository.LedgerRepository
	accountService *service.AccountService
	cfg            *config.Config
	stopCh         chan struct{}
	interval       time.Duration
	batchSize      int
}

func NewLedgerAuditJob(db *gorm.DB, cfg *config.Config) *LedgerAuditJob {
	interval := time.Duration(cfg.Business.LedgerAuditMinutes) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	batchSize := cfg.Business.LedgerAuditBatch
	if batchSize <= 0 {
		batchSize = 100
	}
	return &LedgerAuditJob{
		db:             db,
		ledgerRepo:     repository.NewLedgerRepository(db),
		accountService: service.NewAccountService(db),
		cfg:            cfg,
		stopCh:         make(chan struct{}),
		interval:       interval,
		batchSize:      batchSize,
	}
}

func (j *LedgerAuditJob) Start(ctx context.Context) {
	log.Println("[LedgerAuditJob] 对账巡检任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[LedgerAuditJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[LedgerAuditJob] 任务停止")
			return
		case <-ticker.C:
			j.auditRecentAccounts(ctx)
		}
	}
}

func (j *LedgerAuditJob) Stop() {
	close(j.stopCh)
}

func (j *LedgerAuditJob) auditRecentAccounts(ctx context.Context) {
	userIDs, err := j.ledgerRepo.RecentUserIDs(ctx, j.batchSize)
	if err != nil {
		log.Printf("[LedgerAuditJob] 查询待巡检账户失败: %v", err)
		return
	}

	if len(userIDs) == 0 {
		return
	}

	mismatch := 0
	for _, userID := range userIDs {
		if err := j.accountService.Reconcile(ctx, userID); err != nil {
			mismatch++
			log.Printf("[LedgerAuditJob] 对账失败: userID=%d, err=%v", userID, err)
		}
	}

	if mismatch > 0 {
		log.Printf("[LedgerAuditJob] 本轮巡检 %d 个账户，%d 个账实不符", len(userIDs), mismatch)
	}
}
