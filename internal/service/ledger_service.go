package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sedna-dashboard/internal/types"
)

// TxFilter selects transactions by type; FilterAll keeps everything
type TxFilter string

const (
	FilterAll        TxFilter = "all"
	FilterDeposit    TxFilter = TxFilter(types.TxDeposit)
	FilterWithdrawal TxFilter = TxFilter(types.TxWithdrawal)
	FilterTrade      TxFilter = TxFilter(types.TxTrade)
)

// ParseTxFilter parses a filter name; empty means all
func ParseTxFilter(s string) (TxFilter, error) {
	switch f := TxFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterDeposit, FilterWithdrawal, FilterTrade:
		return f, nil
	}
	return "", fmt.Errorf("unknown transaction filter %q", s)
}

// csvHeader is the column order of ExportCSV
var csvHeader = []string{"id", "type", "asset", "amount", "value", "date", "status", "hash"}

// LedgerService serves the read-only transaction history
type LedgerService struct {
	txs []types.LedgerTransaction
}

// NewLedgerService creates a ledger holding the seed history
func NewLedgerService() *LedgerService {
	return &LedgerService{txs: seedTransactions()}
}

func ledgerTx(id string, typ types.TransactionType, asset, amount, value string, date time.Time, status types.TransactionStatus, hash string) types.LedgerTransaction {
	return types.LedgerTransaction{
		ID:     id,
		Type:   typ,
		Asset:  asset,
		Amount: decimal.RequireFromString(amount),
		Value:  decimal.RequireFromString(value),
		Date:   date,
		Status: status,
		Hash:   hash,
	}
}

func seedTransactions() []types.LedgerTransaction {
	at := func(day, hour, min int) time.Time {
		return time.Date(2025, time.November, day, hour, min, 0, 0, time.UTC)
	}
	return []types.LedgerTransaction{
		ledgerTx("tx_1", types.TxDeposit, "BTC", "0.045", "2850.32", at(24, 14, 30), types.StatusCompleted, "0x3a...9f21"),
		ledgerTx("tx_2", types.TxTrade, "ETH/USDT", "1.2", "3420.00", at(24, 12, 15), types.StatusCompleted, ""),
		ledgerTx("tx_3", types.TxWithdrawal, "SOL", "15.0", "2145.00", at(23, 9, 45), types.StatusPending, "0x8b...4c12"),
		ledgerTx("tx_4", types.TxTrade, "BTC/ETH", "0.1", "6400.00", at(22, 16, 20), types.StatusCompleted, ""),
		ledgerTx("tx_5", types.TxDeposit, "USDC", "5000.0", "5000.00", at(21, 10, 0), types.StatusCompleted, "0x1c...7d33"),
	}
}

// List returns the transactions matching filter whose asset or hash contains
// search, case-insensitively, newest first
func (s *LedgerService) List(filter TxFilter, search string) []types.LedgerTransaction {
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]types.LedgerTransaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if filter != FilterAll && filter != "" && TxFilter(tx.Type) != filter {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(tx.Asset), search) &&
			!strings.Contains(strings.ToLower(tx.Hash), search) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// ExportCSV writes txs as CSV with a header row
func (s *LedgerService) ExportCSV(w io.Writer, txs []types.LedgerTransaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, tx := range txs {
		record := []string{
			tx.ID,
			string(tx.Type),
			tx.Asset,
			tx.Amount.String(),
			tx.Value.StringFixed(2),
			tx.Date.Format(time.RFC3339),
			string(tx.Status),
			tx.Hash,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record %s: %w", tx.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// OrderBook returns the BTC/EUR depth shown next to the trade panel
func (s *LedgerService) OrderBook() types.OrderBook {
	level := func(side types.OrderSide, price, amount, total string, fill int) types.OrderLevel {
		return types.OrderLevel{
			Price:       decimal.RequireFromString(price),
			Amount:      decimal.RequireFromString(amount),
			Total:       decimal.RequireFromString(total),
			Side:        side,
			FillPercent: fill,
		}
	}
	ask := func(price, amount, total string, fill int) types.OrderLevel {
		return level(types.SideAsk, price, amount, total, fill)
	}
	bid := func(price, amount, total string, fill int) types.OrderLevel {
		return level(types.SideBid, price, amount, total, fill)
	}

	return types.OrderBook{
		Pair: "BTC/EUR",
		Asks: []types.OrderLevel{
			ask("100304.4", "0.30000000", "7.10458034", 30),
			ask("100303.0", "2.39254729", "6.80458034", 80),
			ask("100300.9", "2.39259822", "4.41203305", 80),
			ask("100291.3", "1.53320000", "2.01943483", 50),
			ask("100282.6", "0.28756000", "0.48623483", 10),
			ask("100281.5", "0.01730065", "0.19867483", 5),
			ask("100276.1", "0.10840023", "0.18137418", 15),
			ask("100270.1", "0.01599851", "0.07297395", 2),
		},
		Bids: []types.OrderLevel{
			bid("100234.3", "0.54668852", "0.54668852", 20),
			bid("100234.2", "0.03002100", "0.57670952", 5),
			bid("100221.6", "0.14349904", "0.72020856", 10),
			bid("100219.7", "0.04443074", "0.76463930", 8),
			bid("100217.3", "0.23000000", "0.99463930", 25),
			bid("100215.4", "0.14349904", "1.13813834", 15),
			bid("100214.5", "0.02879434", "1.16693268", 4),
			bid("100208.2", "0.00949760", "1.17643028", 2),
		},
	}
}
