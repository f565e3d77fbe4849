package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"zapgoals/internal/domain"
)

func zapEvent(tags [][]string) domain.RawEvent {
	return domain.RawEvent{ID: "zap1", PubKey: "lnurl-server", CreatedAt: 10, Kind: domain.KindZapReceipt, Tags: tags}
}

func TestValueTransferAmountOrder(t *testing.T) {
	p := New()

	z, err := p.ValueTransfer(zapEvent([][]string{{"e", "goal"}, {"p", "bob"}, {"amount", "21000"}, {"bolt11", "lnbc10u1pxyz"}}))
	require.NoError(t, err)
	require.EqualValues(t, 21000, z.AmountMsat)

	z, err = p.ValueTransfer(zapEvent([][]string{{"e", "goal"}, {"bolt11", "lnbc10u1pxyz"}}))
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000, z.AmountMsat)

	z, err = p.ValueTransfer(zapEvent([][]string{{"e", "goal"}, {"description", `{"pubkey":"alice","tags":[["amount","5000"]]}`}}))
	require.NoError(t, err)
	require.EqualValues(t, 5000, z.AmountMsat)

	z, err = p.ValueTransfer(zapEvent([][]string{{"e", "goal"}, {"bolt11", "lnbc1pxyz"}}))
	require.NoError(t, err)
	require.Zero(t, z.AmountMsat)
}

func TestValueTransferZapRequest(t *testing.T) {
	p := New()
	z, err := p.ValueTransfer(zapEvent([][]string{
		{"e", "goal"},
		{"p", "bob"},
		{"description", `{"pubkey":"alice","content":" keep going ","kind":9734}`},
	}))
	require.NoError(t, err)
	require.Equal(t, "alice", z.ZapperPubkey)
	require.Equal(t, "keep going", z.Memo)
	require.Equal(t, "goal", z.TargetEventID)
	require.Equal(t, "bob", z.RecipientPubkey)
}

func TestValueTransferBrokenDescription(t *testing.T) {
	z, err := New().ValueTransfer(zapEvent([][]string{{"e", "goal"}, {"amount", "1000"}, {"description", `{not json`}}))
	require.NoError(t, err)
	require.Empty(t, z.ZapperPubkey)
	require.Empty(t, z.Memo)
	require.EqualValues(t, 1000, z.AmountMsat)

	z, err = New().ValueTransfer(zapEvent([][]string{{"e", "goal"}, {"P", "sender"}, {"description", `[]`}}))
	require.NoError(t, err)
	require.Equal(t, "sender", z.ZapperPubkey)
}

func TestValueTransferRequiresReference(t *testing.T) {
	_, err := New().ValueTransfer(zapEvent([][]string{{"amount", "1000"}}))
	require.ErrorIs(t, err, domain.ErrMalformedEvent)

	z, err := New().ValueTransfer(zapEvent([][]string{{"p", "creator"}, {"amount", "1000"}}))
	require.NoError(t, err)
	require.Empty(t, z.TargetEventID)
}

func TestValueTransferClampsAmount(t *testing.T) {
	z, err := New().ValueTransfer(zapEvent([][]string{{"e", "goal"}, {"amount", "9000000000000000000"}}))
	require.NoError(t, err)
	require.EqualValues(t, maxAmountMsat, z.AmountMsat)
}
