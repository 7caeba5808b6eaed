package messaging

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// liveOutcome 实时发送竞速结果
type liveOutcome struct {
	ack      *types.Ack
	timedOut bool
}

// raceAck 在房间确认与超时之间取先完成者
//
// 两个等待者都通过 settled 守卫提交结果，只有第一个生效。
// 超时不会取消已发出的消息，只是停止等待。
func raceAck(ctx context.Context, clk clock.Clock, acks <-chan *types.Ack, timeout time.Duration) liveOutcome {
	var settled atomic.Bool
	result := make(chan liveOutcome, 1)
	settle := func(o liveOutcome) {
		if settled.CompareAndSwap(false, true) {
			result <- o
		}
	}

	timer := clk.Timer(timeout)
	defer timer.Stop()
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case ack := <-acks:
			settle(liveOutcome{ack: ack})
		case <-stop:
		}
	}()
	go func() {
		select {
		case <-timer.C:
			settle(liveOutcome{timedOut: true})
		case <-ctx.Done():
			settle(liveOutcome{timedOut: true})
		case <-stop:
		}
	}()

	return <-result
}
