package ledger

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/chaininsights/validator/internal/config"
)

func TestLedgerIntegration_ReadOnly(t *testing.T) {
	if os.Getenv("LEDGER_INTEGRATION") != "1" {
		t.Skip("LEDGER_INTEGRATION!=1; skipping real ledger integration test")
	}

	url := os.Getenv("LEDGER_URL")
	if url == "" {
		url = "http://127.0.0.1:3000"
	}
	netuid := 20
	if s := os.Getenv("NET_UID"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			netuid = n
		}
	}

	l, err := NewLedger(&config.LedgerEnvConfig{LedgerURL: url})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	modules, err := l.GetModules(context.Background(), netuid)
	if err != nil {
		t.Fatalf("GetModules error: %v", err)
	}
	if !modules.Success {
		t.Fatalf("GetModules not success: %+v", modules)
	}

	if _, err := l.GetAddresses(context.Background(), netuid); err != nil {
		t.Fatalf("GetAddresses error: %v", err)
	}
}
