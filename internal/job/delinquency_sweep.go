package job

import (
	"context"
	"log"
	"time"

	"tokokredit/internal/config"
	"tokokredit/internal/service"
)

// DelinquencySweep 定时扫描在贷信贷，逾期超过宽限期的标记为不良
// 扫描是幂等的：已标记的信贷不会再次命中
type DelinquencySweep struct {
	creditService *service.CreditService
	stopCh        chan struct{}
	interval      time.Duration
}

func NewDelinquencySweep(creditService *service.CreditService, cfg *config.Config) *DelinquencySweep {
	interval := time.Duration(cfg.Business.SweepIntervalMin) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	return &DelinquencySweep{
		creditService: creditService,
		stopCh:        make(chan struct{}),
		interval:      interval,
	}
}

func (s *DelinquencySweep) Start(ctx context.Context) {
	log.Println("[DelinquencySweep] 逾期扫描任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[DelinquencySweep] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			log.Println("[DelinquencySweep] 任务停止")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *DelinquencySweep) Stop() {
	close(s.stopCh)
}

func (s *DelinquencySweep) sweep(ctx context.Context) {
	flagged, err := s.creditService.SweepDelinquent(ctx, time.Now())
	if err != nil {
		log.Printf("[DelinquencySweep] 扫描失败: %v", err)
		return
	}
	if flagged > 0 {
		log.Printf("[DelinquencySweep] 本轮标记不良信贷 %d 笔", flagged)
	}
}
