package redisrate

import (
	"testing"
	"time"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		period   time.Duration
		wantSlot int64
		wantLeft time.Duration
	}{
		{name: "minute start", now: time.Unix(600, 0), period: time.Minute, wantSlot: 10, wantLeft: time.Minute},
		{name: "minute middle", now: time.Unix(645, 0), period: time.Minute, wantSlot: 10, wantLeft: 15 * time.Second},
		{name: "sub second period", now: time.Unix(7, 0), period: time.Millisecond, wantSlot: 7, wantLeft: time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, left := window(tt.now, tt.period)
			if slot != tt.wantSlot || left != tt.wantLeft {
				t.Errorf("window() = %d, %s, want %d, %s", slot, left, tt.wantSlot, tt.wantLeft)
			}
		})
	}
	if got := allowName("ip:1", 10); got != "rate:ip:1-10" {
		t.Errorf("allowName() = %s", got)
	}
}
