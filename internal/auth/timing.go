package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig sets how long failed logins are held before answering
type TimingConfig struct {
	BaseDelayMs    int
	RandomDelayMs  int
	DelayOnSuccess bool
}

// TimingDelay pads authentication responses so that unknown emails and wrong
// passwords take about the same time
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config, sleep: time.Sleep}
}

// NoDelay returns a TimingDelay that never waits
func NoDelay() *TimingDelay {
	return NewTimingDelay(TimingConfig{})
}

// target is the total time an attempt should take: base plus crypto-random jitter
func (td *TimingDelay) target() time.Duration {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.RandomDelayMs))); err == nil {
			delay += time.Duration(n.Int64()) * time.Millisecond
		}
	}
	return delay
}

// WaitFrom sleeps until at least the target duration has passed since start
func (td *TimingDelay) WaitFrom(start time.Time, success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}

	if remaining := td.target() - time.Since(start); remaining > 0 {
		td.sleep(remaining)
	}
}
