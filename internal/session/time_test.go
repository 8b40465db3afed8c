package session

import (
	"testing"
	"testing/synctest"
	"time"
)

func TestClockInit(t *testing.T) {
	testcases := []struct {
		step  time.Duration
		valid bool
	}{
		{step: 0},
		{step: -10 * time.Second},
		{step: 3 * time.Minute, valid: true},
	}
	for _, tc := range testcases {
		clock := Clock{}
		err := clock.Init(tc.step)
		if tc.valid != (nil == err) {
			t.Errorf("failed Init(%s) control, got error %v", tc.step, err)
		}
		if tc.valid && tc.step != clock.Step() {
			t.Errorf("failed Step control, %s != %s", clock.Step(), tc.step)
		}
	}
}

func TestClockTick(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		step := 32 * time.Second
		clock := Clock{}

		time.Sleep(48*time.Hour + 20*time.Minute)
		err := clock.Init(step)
		if nil != err {
			t.Fatalf("failed clock.Init, got error %v", err)
		}

		expectations := []struct {
			sleep time.Duration
			t     int64
		}{
			{sleep: step - time.Nanosecond, t: 0},
			{sleep: time.Nanosecond, t: 1},
			{sleep: 8*step - time.Nanosecond, t: 8},
			{sleep: time.Nanosecond, t: 9},
		}
		for _, exp := range expectations {
			time.Sleep(exp.sleep)
			if exp.t != clock.T() {
				t.Errorf("clock.T() -> %d != %d", clock.T(), exp.t)
			}
		}
	})
}
