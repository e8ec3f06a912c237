package viewer

import "time"

// Clock 抽象出定时器的来源，测试可以注入手动驱动的实现。
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker 是 *time.Ticker 的最小接口。
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock 使用 time.NewTicker。
type RealClock struct{}

func (RealClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
