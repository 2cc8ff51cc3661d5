package service

import (
	"context"
)

// Actor 上游身份服务给出的操作者
// 这里信任传入的身份，不做二次鉴权
type Actor struct {
	ID    int64
	Level string // member / staff / owner
}

// ProfileChecker 档案完整性检查，信贷申请准入用
type ProfileChecker interface {
	IsComplete(ctx context.Context, userID int64) (bool, error)
}

// DocumentStore 申请材料 / 支付凭证的外部存储
// 写入失败只记日志，不影响已提交的业务数据
type DocumentStore interface {
	Place(ownerKey string, files map[string][]byte) (map[string]string, error)
}
