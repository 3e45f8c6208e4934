// Package accounts holds the connected accounts of a session and the
// code-confirmed removal flow.
package accounts

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sedna-dashboard/internal/types"
	"github.com/sedna-dashboard/internal/validation"
)

// Account is one connected wallet or exchange account
type Account struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Balance     decimal.Decimal `json:"balance"`
	Change      decimal.Decimal `json:"change"` // percent
	IsPositive  bool            `json:"isPositive"`
	Address     string          `json:"address"`
	Icon        string          `json:"icon"`
	CustomColor string          `json:"customColor,omitempty"`
}

// BalanceSummary is the total balance card shown above the accounts
type BalanceSummary struct {
	Total          decimal.Decimal `json:"total"`
	ChangeVsMonth  decimal.Decimal `json:"changeVsLastMonth"`
	OnChainBTC     decimal.Decimal `json:"onChainBtc"`
	PendingBalance decimal.Decimal `json:"pending"`
}

const (
	codeMin = 10000000
	codeMax = 99999999
)

var (
	// ErrCodeMismatch is returned when a removal is confirmed with the wrong code
	ErrCodeMismatch = errors.New("confirmation code mismatch")

	errNoPendingRemoval = &types.ServiceError{Code: "NO_PENDING_REMOVAL", Message: "no removal has been requested for this account"}
	errInvalidColor     = &types.ServiceError{Code: "INVALID_INPUT", Message: "color must be a #rrggbb hex value"}
)

func accountNotFound(id string) error {
	return &types.ServiceError{
		Code:    "ACCOUNT_NOT_FOUND",
		Message: "account not found",
		Details: map[string]interface{}{"accountId": id},
	}
}

func seedAccounts() []Account {
	return []Account{
		{ID: "1", Name: "Main Wallet", Type: "Crypto", Balance: decimal.RequireFromString("124532.00"), Change: decimal.RequireFromString("4.2"), IsPositive: true, Address: "0x71C...9A21", Icon: "wallet"},
		{ID: "2", Name: "Trading Account", Type: "Margin", Balance: decimal.RequireFromString("42150.80"), Change: decimal.RequireFromString("-1.5"), IsPositive: false, Address: "0x3B9...4F82", Icon: "arrow-up-right"},
		{ID: "3", Name: "Savings", Type: "Staking", Balance: decimal.RequireFromString("15000.00"), Change: decimal.RequireFromString("12.5"), IsPositive: true, Address: "0x9D2...1E56", Icon: "credit-card"},
	}
}

// Book is the account list of one session. Safe for concurrent use.
type Book struct {
	mu       sync.Mutex
	accounts []Account
	pending  map[string]string // account id -> verification code
	rng      *rand.Rand
}

// NewBook returns a book with the seed accounts
func NewBook() *Book {
	seed := uint64(time.Now().UnixNano())
	return NewBookWithRand(rand.New(rand.NewPCG(seed, seed>>3)))
}

// NewBookWithRand returns a book drawing verification codes from rng
func NewBookWithRand(rng *rand.Rand) *Book {
	return &Book{
		accounts: seedAccounts(),
		pending:  make(map[string]string),
		rng:      rng,
	}
}

// List returns the accounts in display order
func (b *Book) List() []Account {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Account, len(b.accounts))
	copy(out, b.accounts)
	return out
}

// Summary returns the balance overview
func (b *Book) Summary() BalanceSummary {
	return BalanceSummary{
		Total:          decimal.RequireFromString("124532.00"),
		ChangeVsMonth:  decimal.RequireFromString("4.2"),
		OnChainBTC:     decimal.RequireFromString("1.24"),
		PendingBalance: decimal.RequireFromString("1204.55"),
	}
}

// RequestRemoval issues a fresh 8-digit code for id, replacing any pending one
func (b *Book) RequestRemoval(id string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexOf(id) < 0 {
		return "", accountNotFound(id)
	}
	code := strconv.Itoa(codeMin + b.rng.IntN(codeMax-codeMin+1))
	b.pending[id] = code
	return code, nil
}

// CanConfirm reports whether input matches the pending code of id
func (b *Book) CanConfirm(id, input string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	code, ok := b.pending[id]
	return ok && input == code
}

// ConfirmRemoval removes id when input matches its pending code. On a
// mismatch nothing changes and the code stays pending.
func (b *Book) ConfirmRemoval(id, input string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return accountNotFound(id)
	}
	code, ok := b.pending[id]
	if !ok {
		return errNoPendingRemoval
	}
	if input != code {
		return ErrCodeMismatch
	}

	b.accounts = append(b.accounts[:i:i], b.accounts[i+1:]...)
	delete(b.pending, id)
	return nil
}

// CancelRemoval discards the pending code of id
func (b *Book) CancelRemoval(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
}

// Customize sets the card colour of id. color must be #rrggbb.
func (b *Book) Customize(id, color string) (Account, error) {
	if err := validation.Get().Var(color, "required,hex_color"); err != nil {
		return Account{}, errInvalidColor
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return Account{}, accountNotFound(id)
	}
	b.accounts[i].CustomColor = color
	return b.accounts[i], nil
}

func (b *Book) indexOf(id string) int {
	for i, a := range b.accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}
