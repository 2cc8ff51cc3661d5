package idgen

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// 单据号生成
// ============================================================================
//
// 两类编号：
//   1. 实体短码（订单、信贷）：取 UUID 第一段，8 位十六进制，给人看、可口述；
//      唯一性靠数据库唯一索引兜底，冲突时调用方有限次重新生成。
//   2. 流水号（还款、投资）：雪花 ID，64 位 = 41 位时间戳 + 10 位机器号 + 12 位序列，
//      趋势递增，适合做台账索引。
//
// ============================================================================

const (
	epoch          = int64(1704067200000) // 起始时间戳（2024-01-01 00:00:00 UTC）
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// Snowflake 雪花算法流水号生成器
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	once             sync.Once
)

// Init 初始化默认生成器
func Init(workerID int64) {
	once.Do(func() {
		if workerID < 0 || workerID > maxWorkerID {
			log.Fatalf("workerID 必须在 0-%d 之间", maxWorkerID)
		}
		defaultGenerator = &Snowflake{workerID: workerID}
	})
}

// NextID 生成下一个流水 ID
func NextID() int64 {
	if defaultGenerator == nil {
		Init(1)
	}
	return defaultGenerator.Generate()
}

// Generate 生成 ID
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 同一毫秒内序列号用完，等下一毫秒
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

// ShortCode 实体短码：UUID 第一段，8 位
func ShortCode() string {
	return strings.Split(uuid.NewString(), "-")[0]
}

// GenerateOrderCode 生成订单交易码
func GenerateOrderCode() string {
	return ShortCode()
}

// GenerateCreditCode 生成信贷编号
func GenerateCreditCode() string {
	return ShortCode()
}

// GeneratePaymentNo 生成还款流水号
// 格式：BYR + 年月日时分秒 + 雪花ID后8位
func GeneratePaymentNo() string {
	id := NextID()
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("BYR%s%08d", timestamp, id%100000000)
}

// GenerateInvestmentNo 生成投资编号
func GenerateInvestmentNo() string {
	id := NextID()
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("INV%s%08d", timestamp, id%100000000)
}
