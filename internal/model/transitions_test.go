package model

import "testing"

func TestNextOrderStatus(t *testing.T) {
	cases := []struct {
		status string
		action OrderAction
		next   string
		ok     bool
	}{
		{OrderStatusWaiting, OrderActionPay, OrderStatusPaid, true},
		{OrderStatusPaid, OrderActionVerify, OrderStatusProceed, true},
		{OrderStatusProceed, OrderActionComplete, OrderStatusSuccess, true},
		{OrderStatusWaiting, OrderActionCancel, OrderStatusCanceled, true},
		{OrderStatusPaid, OrderActionCancel, OrderStatusCanceled, true},
		{OrderStatusProceed, OrderActionCancel, OrderStatusCanceled, true},
		// 非法组合
		{OrderStatusWaiting, OrderActionVerify, "", false},
		{OrderStatusWaiting, OrderActionComplete, "", false},
		{OrderStatusPaid, OrderActionPay, "", false},
		{OrderStatusSuccess, OrderActionCancel, "", false},
		{OrderStatusSuccess, OrderActionComplete, "", false},
		{OrderStatusCanceled, OrderActionPay, "", false},
	}

	for _, c := range cases {
		next, ok := NextOrderStatus(c.status, c.action)
		if ok != c.ok {
			t.Errorf("(%s, %s): ok = %v, want %v", c.status, c.action, ok, c.ok)
			continue
		}
		if ok && next != c.next {
			t.Errorf("(%s, %s): next = %s, want %s", c.status, c.action, next, c.next)
		}
	}
}

func TestIsOrderTerminal(t *testing.T) {
	for _, status := range []string{OrderStatusSuccess, OrderStatusCanceled} {
		if !IsOrderTerminal(status) {
			t.Errorf("%s 应为终态", status)
		}
	}
	for _, status := range []string{OrderStatusWaiting, OrderStatusPaid, OrderStatusProceed} {
		if IsOrderTerminal(status) {
			t.Errorf("%s 不应为终态", status)
		}
	}
}

func TestNextCreditStatus(t *testing.T) {
	cases := []struct {
		status string
		action CreditAction
		next   string
		ok     bool
	}{
		{CreditStatusWaiting, CreditActionVerify, CreditStatusVerified, true},
		{CreditStatusVerified, CreditActionApprove, CreditStatusApproved, true},
		{CreditStatusApproved, CreditActionActivate, CreditStatusOngoing, true},
		{CreditStatusOngoing, CreditActionFinish, CreditStatusDone, true},
		{CreditStatusOngoing, CreditActionMarkNPL, CreditStatusNonPerform, true},
		{CreditStatusNonPerform, CreditActionFinish, CreditStatusDone, true},
		// 放款前都能拒绝
		{CreditStatusWaiting, CreditActionReject, CreditStatusReject, true},
		{CreditStatusVerified, CreditActionReject, CreditStatusReject, true},
		{CreditStatusApproved, CreditActionReject, CreditStatusReject, true},
		// 放款后不能再拒绝
		{CreditStatusOngoing, CreditActionReject, "", false},
		{CreditStatusNonPerform, CreditActionReject, "", false},
		// 不能跳步
		{CreditStatusWaiting, CreditActionApprove, "", false},
		{CreditStatusWaiting, CreditActionActivate, "", false},
		{CreditStatusVerified, CreditActionActivate, "", false},
		// 终态不再迁移
		{CreditStatusDone, CreditActionFinish, "", false},
		{CreditStatusReject, CreditActionVerify, "", false},
	}

	for _, c := range cases {
		next, ok := NextCreditStatus(c.status, c.action)
		if ok != c.ok {
			t.Errorf("(%s, %s): ok = %v, want %v", c.status, c.action, ok, c.ok)
			continue
		}
		if ok && next != c.next {
			t.Errorf("(%s, %s): next = %s, want %s", c.status, c.action, next, c.next)
		}
	}
}

func TestCreditPrincipal(t *testing.T) {
	c := &Credit{Price: 12000, DownPayment: 2000}
	if got := c.Principal(); got != 10000 {
		t.Errorf("Principal() = %d, want 10000", got)
	}
}
