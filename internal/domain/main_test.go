package domain

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	EncodeMoneyAsNumbers()
	os.Exit(m.Run())
}
