package service

import (
	"context"

	"github.com/kube-rca/oncall-agent/internal/model"
)

// NopNotifier - 알림 채널이 설정되지 않았을 때 사용
type NopNotifier struct{}

func (NopNotifier) NotifyDecision(context.Context, model.ErrorContext, model.RoutingDecision) {}
func (NopNotifier) NotifyCall(context.Context, model.CallRecord)                              {}

// MultiNotifier - 여러 알림 채널(Slack, 외부 웹훅)에 순서대로 전달
type MultiNotifier []Notifier

// NewNotifier - nil을 제외한 채널 묶음, 하나도 없으면 NopNotifier
func NewNotifier(notifiers ...Notifier) Notifier {
	var m MultiNotifier
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	switch len(m) {
	case 0:
		return NopNotifier{}
	case 1:
		return m[0]
	}
	return m
}

func (m MultiNotifier) NotifyDecision(ctx context.Context, ec model.ErrorContext, decision model.RoutingDecision) {
	for _, n := range m {
		n.NotifyDecision(ctx, ec, decision)
	}
}

func (m MultiNotifier) NotifyCall(ctx context.Context, rec model.CallRecord) {
	for _, n := range m {
		n.NotifyCall(ctx, rec)
	}
}
