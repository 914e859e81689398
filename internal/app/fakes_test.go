package app

import (
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/bujia-iot/card-sensor-client/internal/domain/card_protocol"
)

// fakeTimers 手动推进的定时器后端
type fakeTimers struct {
	now     time.Time
	order   int
	pending []pendingTimer
	ch      chan TimerEvent
	err     error
}

type pendingTimer struct {
	at    time.Time
	ev    TimerEvent
	order int
}

func newFakeTimers(start time.Time) *fakeTimers {
	return &fakeTimers{now: start, ch: make(chan TimerEvent, 16)}
}

func (f *fakeTimers) After(d time.Duration, ev TimerEvent) error {
	if f.err != nil {
		return f.err
	}
	f.order++
	f.pending = append(f.pending, pendingTimer{at: f.now.Add(d), ev: ev, order: f.order})
	return nil
}

func (f *fakeTimers) Expired() <-chan TimerEvent {
	return f.ch
}

// popNext 取出最早到期的定时器并把时钟推进到该时刻
func (f *fakeTimers) popNext() (pendingTimer, bool) {
	if len(f.pending) == 0 {
		return pendingTimer{}, false
	}
	sort.SliceStable(f.pending, func(i, j int) bool {
		if f.pending[i].at.Equal(f.pending[j].at) {
			return f.pending[i].order < f.pending[j].order
		}
		return f.pending[i].at.Before(f.pending[j].at)
	})
	next := f.pending[0]
	f.pending = f.pending[1:]
	f.now = next.at
	return next, true
}

func (f *fakeTimers) countKind(kind TimerKind) int {
	n := 0
	for _, p := range f.pending {
		if p.ev.Kind == kind {
			n++
		}
	}
	return n
}

func (f *fakeTimers) clock() time.Time {
	return f.now
}

// fakeTransport 记录发出的负载
type fakeTransport struct {
	mu       sync.Mutex
	payloads []string
	fail     bool
}

func (f *fakeTransport) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("network is unreachable")
	}
	f.payloads = append(f.payloads, string(payload))
	return nil
}

func (f *fakeTransport) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.payloads...)
}

// fakeIndicator 记录指示灯输出
type fakeIndicator struct {
	mu     sync.Mutex
	states []card_protocol.IndicatorState
}

func (f *fakeIndicator) Apply(state card_protocol.IndicatorState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
	return nil
}

func (f *fakeIndicator) last() (card_protocol.IndicatorState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return card_protocol.IndicatorOff, false
	}
	return f.states[len(f.states)-1], true
}

// fakeMirror 记录镜像的上报
type fakeMirror struct {
	reports []card_protocol.Report
}

func (f *fakeMirror) Publish(r card_protocol.Report) {
	f.reports = append(f.reports, r)
}

func staticAddrs(cidrs ...string) AddressSource {
	return func() ([]net.Addr, error) {
		var out []net.Addr
		for _, c := range cidrs {
			ip, n, err := net.ParseCIDR(c)
			if err != nil {
				return nil, err
			}
			n.IP = ip
			out = append(out, n)
		}
		return out, nil
	}
}
