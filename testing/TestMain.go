package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("TRACKINVOICE_TEST_MODE", "1")
		if os.Getenv("TIMEZONE") == "" {
			_ = os.Setenv("TIMEZONE", "Asia/Jakarta")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
