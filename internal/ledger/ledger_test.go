package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharma-chain/pharma_chain/internal/infra"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	db, err := infra.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = infra.CloseSQLite(db) })
	sqliteRepo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("sqlite repository: %v", err)
	}
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": sqliteRepo,
	}
}

func forEachRepository(t *testing.T, fn func(t *testing.T, l *Ledger)) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, New(repo, nil, nil))
		})
	}
}

func TestAppendThenTotalIsCaseInsensitive(t *testing.T) {
	forEachRepository(t, func(t *testing.T, l *Ledger) {
		ctx := context.Background()
		stored, err := l.Append(ctx, Transaction{
			Customer: "0xABC",
			PriceETH: "0.05",
			Medicine: []LineItem{{Name: "Paracetamol", Qty: 2}},
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if stored.ID == "" || stored.Date == "" || stored.Timestamp == 0 {
			t.Fatalf("expected id and timestamps assigned, got %+v", stored)
		}

		txs, err := l.ByAccount(ctx, "0xabc")
		if err != nil {
			t.Fatalf("by account: %v", err)
		}
		if len(txs) != 1 || txs[0].ID != stored.ID {
			t.Fatalf("expected appended record, got %+v", txs)
		}
		if txs[0].Medicine[0].Name != "Paracetamol" || txs[0].Medicine[0].Qty != 2 {
			t.Fatalf("line items not kept: %+v", txs[0].Medicine)
		}

		total, err := l.TotalByAccount(ctx, "0xabc")
		if err != nil {
			t.Fatalf("total: %v", err)
		}
		if !total.Equal(decimal.RequireFromString("0.05")) {
			t.Fatalf("expected 0.05, got %s", total)
		}
	})
}

func TestMostRecentFirst(t *testing.T) {
	forEachRepository(t, func(t *testing.T, l *Ledger) {
		ctx := context.Background()
		var ids []string
		for i := 0; i < 3; i++ {
			tx, err := l.Append(ctx, Transaction{Customer: "0xabc", PriceETH: "1"})
			if err != nil {
				t.Fatalf("append %d: %v", i, err)
			}
			ids = append(ids, tx.ID)
		}
		all, err := l.All(ctx)
		if err != nil {
			t.Fatalf("all: %v", err)
		}
		if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
			t.Fatalf("expected newest first, got %v", all)
		}
		if !(all[0].Timestamp > all[1].Timestamp && all[1].Timestamp > all[2].Timestamp) {
			t.Fatalf("expected strictly increasing timestamps, got %d %d %d", all[2].Timestamp, all[1].Timestamp, all[0].Timestamp)
		}
	})
}

func TestEmptyAccountMatchesNothing(t *testing.T) {
	forEachRepository(t, func(t *testing.T, l *Ledger) {
		ctx := context.Background()
		if _, err := l.Append(ctx, Transaction{Customer: "", PriceETH: "1"}); err != nil {
			t.Fatalf("append: %v", err)
		}
		txs, err := l.ByAccount(ctx, "  ")
		if err != nil {
			t.Fatalf("by account: %v", err)
		}
		if txs == nil || len(txs) != 0 {
			t.Fatalf("expected empty non-nil result, got %v", txs)
		}
		total, _ := l.TotalByAccount(ctx, "")
		if !total.IsZero() {
			t.Fatalf("expected zero total, got %s", total)
		}
	})
}

func TestTotalIgnoresUnparseablePrices(t *testing.T) {
	forEachRepository(t, func(t *testing.T, l *Ledger) {
		ctx := context.Background()
		for _, price := range []Price{"0.1", "abc", "", "0.2", "-5"} {
			if _, err := l.Append(ctx, Transaction{Customer: "0xabc", PriceETH: price}); err != nil {
				t.Fatalf("append %q: %v", price, err)
			}
		}
		total, err := l.TotalByAccount(ctx, "0xABC")
		if err != nil {
			t.Fatalf("total: %v", err)
		}
		if !total.Equal(decimal.RequireFromString("0.3")) {
			t.Fatalf("expected 0.3, got %s", total)
		}
		all, _ := l.TotalAll(ctx)
		if !all.Equal(total) {
			t.Fatalf("expected TotalAll %s, got %s", total, all)
		}
	})
}

func TestDuplicateIDRejected(t *testing.T) {
	forEachRepository(t, func(t *testing.T, l *Ledger) {
		ctx := context.Background()
		if _, err := l.Append(ctx, Transaction{ID: "tx_1", Customer: "0xabc", PriceETH: "1"}); err != nil {
			t.Fatalf("append: %v", err)
		}
		_, err := l.Append(ctx, Transaction{ID: "tx_1", Customer: "0xabc", PriceETH: "2"})
		if !errors.Is(err, ErrDuplicateTransaction) {
			t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
		}
		all, _ := l.All(ctx)
		if len(all) != 1 || all[0].PriceETH != "1" {
			t.Fatalf("existing record must be unchanged, got %v", all)
		}
	})
}

func TestClearEmptiesLedger(t *testing.T) {
	forEachRepository(t, func(t *testing.T, l *Ledger) {
		ctx := context.Background()
		if _, err := l.Append(ctx, Transaction{Customer: "0xabc", PriceETH: "1"}); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := l.Clear(ctx); err != nil {
			t.Fatalf("clear: %v", err)
		}
		txs, _ := l.ByAccount(ctx, "0xabc")
		if len(txs) != 0 {
			t.Fatalf("expected empty ledger, got %v", txs)
		}
		if _, err := l.Append(ctx, Transaction{Customer: "0xabc", PriceETH: "1"}); err != nil {
			t.Fatalf("append after clear: %v", err)
		}
	})
}

func TestStoredRecordsAreImmutable(t *testing.T) {
	l := New(NewMemoryRepository(), nil, nil)
	ctx := context.Background()
	items := []LineItem{{Name: "Ibuprofen", Qty: 1}}
	stored, err := l.Append(ctx, Transaction{Customer: "0xabc", PriceETH: "1", Medicine: items})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	items[0].Qty = 99
	stored.Medicine[0].Name = "changed"

	txs, _ := l.ByAccount(ctx, "0xabc")
	if txs[0].Medicine[0].Qty != 1 || txs[0].Medicine[0].Name != "Ibuprofen" {
		t.Fatalf("stored record was mutated: %+v", txs[0].Medicine)
	}
}

func TestSQLiteLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	db, err := infra.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	if _, err := New(repo, nil, nil).Append(ctx, Transaction{Customer: "0xabc", PriceETH: "0.5"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = infra.CloseSQLite(db)

	db, err = infra.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer infra.CloseSQLite(db)
	repo, err = NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	total, err := New(repo, nil, nil).TotalByAccount(ctx, "0xABC")
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected 0.5 after reopen, got %s", total)
	}
}

func TestAssignedDateIsISOWithMillis(t *testing.T) {
	l := New(NewMemoryRepository(), nil, nil)
	l.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 123e6, time.UTC) }
	tx, err := l.Append(context.Background(), Transaction{Customer: "0xabc"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if tx.Date != "2024-05-01T10:00:00.123Z" {
		t.Fatalf("unexpected date %s", tx.Date)
	}
}

func TestPriceAcceptsNumbersAndStrings(t *testing.T) {
	var tx Transaction
	if err := json.Unmarshal([]byte(`{"customer":"0xabc","price_eth":0.25,"price_usd":"500"}`), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !tx.PriceETH.Decimal().Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("unexpected price_eth %q", tx.PriceETH)
	}
	if tx.PriceUSD != "500" {
		t.Fatalf("unexpected price_usd %q", tx.PriceUSD)
	}
}

func TestTotalAllSpansAccounts(t *testing.T) {
	forEachRepository(t, func(t *testing.T, l *Ledger) {
		ctx := context.Background()
		for _, tx := range []Transaction{
			{Customer: "0xabc", PriceETH: "0.05"},
			{Customer: "0xDEF", PriceETH: "1.25"},
		} {
			if _, err := l.Append(ctx, tx); err != nil {
				t.Fatalf("append: %v", err)
			}
		}
		total, err := l.TotalAll(ctx)
		if err != nil {
			t.Fatalf("total all: %v", err)
		}
		if !total.Equal(decimal.RequireFromString("1.3")) {
			t.Fatalf("expected 1.3, got %s", total)
		}
	})
}

func TestPriceUsesLeadingNumber(t *testing.T) {
	cases := map[Price]string{
		"0.05 ETH": "0.05",
		" 12abc":   "12",
		".5":       "0.5",
		"3.":       "3",
		"1e2x":     "100",
		"1e":       "1",
		"ETH 1":    "0",
		"-":        "0",
		"":         "0",
	}
	for in, want := range cases {
		if got := in.Decimal(); !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("Price(%q).Decimal() = %s, want %s", in, got, want)
		}
	}
}

func TestTotalCountsLeadingNumberOfPrice(t *testing.T) {
	forEachRepository(t, func(t *testing.T, l *Ledger) {
		ctx := context.Background()
		if _, err := l.Append(ctx, Transaction{Customer: "0xabc", PriceETH: "0.05 ETH"}); err != nil {
			t.Fatalf("append: %v", err)
		}
		total, err := l.TotalByAccount(ctx, "0xabc")
		if err != nil {
			t.Fatalf("total: %v", err)
		}
		if !total.Equal(decimal.RequireFromString("0.05")) {
			t.Fatalf("expected 0.05, got %s", total)
		}
	})
}
