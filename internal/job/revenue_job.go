package job

import (
	"context"
	"log"
	"time"

	"tokokredit/internal/config"
	"tokokredit/internal/service"
)

// RevenueJob 定时重算当月营收快照
// 重算是覆盖写，多跑几轮结果不变
type RevenueJob struct {
	revenueService *service.RevenueService
	stopCh         chan struct{}
	interval       time.Duration
}

func NewRevenueJob(revenueService *service.RevenueService, cfg *config.Config) *RevenueJob {
	interval := time.Duration(cfg.Business.RevenueIntervalMin) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &RevenueJob{
		revenueService: revenueService,
		stopCh:         make(chan struct{}),
		interval:       interval,
	}
}

func (j *RevenueJob) Start(ctx context.Context) {
	log.Println("[RevenueJob] 营收快照任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[RevenueJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[RevenueJob] 任务停止")
			return
		case <-ticker.C:
			j.recompute(ctx)
		}
	}
}

func (j *RevenueJob) Stop() {
	close(j.stopCh)
}

func (j *RevenueJob) recompute(ctx context.Context) {
	now := time.Now()
	if _, err := j.revenueService.ComputeMonthly(ctx, now.Year(), int(now.Month())); err != nil {
		log.Printf("[RevenueJob] 重算当月快照失败: %v", err)
	}
}
