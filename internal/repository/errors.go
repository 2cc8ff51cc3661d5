package repository

import (
	"errors"
	"fmt"
)

// 业务错误集合：调用方用 errors.Is/As 区分业务拒绝和系统故障
var (
	ErrProductNotFound   = errors.New("商品不存在")
	ErrOrderNotFound     = errors.New("订单不存在")
	ErrCreditNotFound    = errors.New("信贷记录不存在")
	ErrInvestorNotFound  = errors.New("投资人不存在")
	ErrInvestorExists    = errors.New("该用户已登记为投资人")
	ErrInvestorExpired   = errors.New("投资已到期，需重新激活")
	ErrProfileNotFound   = errors.New("用户档案不存在")
	ErrInvalidTransition = errors.New("状态迁移不合法")
	ErrEmptyCart         = errors.New("购物车为空")
	ErrIncompleteProfile = errors.New("用户档案不完整")
	ErrDuplicateCode     = errors.New("单据编号冲突")
	ErrValidation        = errors.New("请求数据不合法")
)

// InsufficientStockError 库存不足，带上是哪个商品不够
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("商品 %d 库存不足", e.ProductID)
}
