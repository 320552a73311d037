package jobs_test

import (
	"testing"

	"go.uber.org/goleak"
)

// worker pools must have joined every goroutine once Stop returns
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
