// Package kxtesting holds helpers shared by the kubexp tests.
package kxtesting

import (
	"testing"
	"time"
)

// Eventually polls condition every interval until it holds. It fails the test
// with msg, or a generic message, once timeout has passed.
func Eventually(t testing.TB, timeout, interval time.Duration, condition func() bool, msg ...string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			m := "condition not met within " + timeout.String()
			if len(msg) > 0 && msg[0] != "" {
				m = msg[0]
			}
			t.Fatal(m)
		}
		time.Sleep(interval)
	}
}
