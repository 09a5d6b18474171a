package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tiered_social/internal/domain/payment/model"
)

// ErrDeclined 网关拒绝扣款
var ErrDeclined = errors.New("payment declined")

// Charge 扣款结果
type Charge struct {
	TransactionID string
	Response      map[string]interface{}
}

type PaymentStrategy interface {
	// Gateway 网关名称，写入支付记录
	Gateway() string
	// Charge 对已创建的支付记录扣款
	Charge(ctx context.Context, payment *model.Payment) (*Charge, error)
}

// SimulatedStrategy 直接成功的模拟网关
type SimulatedStrategy struct {
	now func() time.Time
}

func NewSimulatedStrategy() *SimulatedStrategy {
	return &SimulatedStrategy{now: time.Now}
}

func (s *SimulatedStrategy) Gateway() string {
	return "simulated"
}

// Charge 交易号格式 TXN<支付ID前8位><yyyymmddhhmmss>
func (s *SimulatedStrategy) Charge(_ context.Context, payment *model.Payment) (*Charge, error) {
	if payment.Amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrDeclined)
	}
	short := strings.ReplaceAll(payment.ID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	txn := "TXN" + strings.ToUpper(short) + s.now().UTC().Format("20060102150405")
	return &Charge{
		TransactionID: txn,
		Response:      map[string]interface{}{"simulated": true, "method": string(payment.PaymentMethod)},
	}, nil
}

// 确保实现了接口
var _ PaymentStrategy = (*SimulatedStrategy)(nil)
