package accounts

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sedna-dashboard/internal/types"
)

func newTestBook() *Book {
	return NewBookWithRand(rand.New(rand.NewPCG(1, 2)))
}

func TestBook_SeedAccounts(t *testing.T) {
	accs := newTestBook().List()

	require.Len(t, accs, 3)
	assert.Equal(t, "Main Wallet", accs[0].Name)
	assert.Equal(t, "124532", accs[0].Balance.String())
	assert.False(t, accs[1].IsPositive)
	assert.Equal(t, "0x9D2...1E56", accs[2].Address)
}

func TestBook_Summary(t *testing.T) {
	s := newTestBook().Summary()
	assert.Equal(t, "124532", s.Total.String())
	assert.Equal(t, "1.24", s.OnChainBTC.String())
	assert.Equal(t, "1204.55", s.PendingBalance.String())
}

func TestBook_RemovalFlow(t *testing.T) {
	b := newTestBook()

	code, err := b.RequestRemoval("2")
	require.NoError(t, err)
	require.Len(t, code, 8)

	assert.False(t, b.CanConfirm("2", "00000000"))
	assert.False(t, b.CanConfirm("1", code), "code is bound to its account")
	assert.True(t, b.CanConfirm("2", code))

	err = b.ConfirmRemoval("2", "11111111")
	assert.ErrorIs(t, err, ErrCodeMismatch)
	assert.Len(t, b.List(), 3, "mismatch leaves the list unchanged")

	require.NoError(t, b.ConfirmRemoval("2", code))
	ids := []string{}
	for _, a := range b.List() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"1", "3"}, ids)
	assert.False(t, b.CanConfirm("2", code))
}

func TestBook_RequestRemovalReplacesCode(t *testing.T) {
	b := newTestBook()

	first, err := b.RequestRemoval("1")
	require.NoError(t, err)
	second, err := b.RequestRemoval("1")
	require.NoError(t, err)

	if first != second {
		assert.False(t, b.CanConfirm("1", first))
	}
	assert.True(t, b.CanConfirm("1", second))
}

func TestBook_ConfirmWithoutRequest(t *testing.T) {
	b := newTestBook()

	err := b.ConfirmRemoval("1", "12345678")

	var svcErr *types.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "NO_PENDING_REMOVAL", svcErr.Code)
}

func TestBook_UnknownAccount(t *testing.T) {
	b := newTestBook()

	_, err := b.RequestRemoval("99")
	var svcErr *types.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "ACCOUNT_NOT_FOUND", svcErr.Code)

	_, err = b.Customize("99", "#112233")
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "ACCOUNT_NOT_FOUND", svcErr.Code)
}

func TestBook_CancelRemoval(t *testing.T) {
	b := newTestBook()
	code, _ := b.RequestRemoval("3")

	b.CancelRemoval("3")

	assert.False(t, b.CanConfirm("3", code))
}

func TestBook_Customize(t *testing.T) {
	b := newTestBook()

	acc, err := b.Customize("1", "#EC4899")
	require.NoError(t, err)
	assert.Equal(t, "#EC4899", acc.CustomColor)
	assert.Equal(t, "#EC4899", b.List()[0].CustomColor)

	_, err = b.Customize("1", "pink")
	var svcErr *types.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "INVALID_INPUT", svcErr.Code)
}

func TestRemovalCodeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("codes are 8 digits in 10000000..99999999", prop.ForAll(
		func(seed uint64) bool {
			b := NewBookWithRand(rand.New(rand.NewPCG(seed, seed)))
			code, err := b.RequestRemoval("1")
			if err != nil || len(code) != 8 {
				return false
			}
			n, err := strconv.Atoi(code)
			return err == nil && n >= codeMin && n <= codeMax
		},
		gen.UInt64(),
	))

	properties.Property("only the issued code confirms", prop.ForAll(
		func(seed uint64, guess int) bool {
			b := NewBookWithRand(rand.New(rand.NewPCG(seed, seed)))
			code, _ := b.RequestRemoval("1")
			input := strconv.Itoa(guess)
			return b.CanConfirm("1", input) == (input == code)
		},
		gen.UInt64(),
		gen.IntRange(codeMin, codeMax),
	))

	properties.TestingRun(t)
}
