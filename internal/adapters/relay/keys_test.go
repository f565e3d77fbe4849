package relay

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/require"

	"zapgoals/internal/domain"
)

func TestSignAndVerify(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	signer, err := NewKeySigner(sk)
	require.NoError(t, err)

	pk, err := nostr.GetPublicKey(sk)
	require.NoError(t, err)
	require.Equal(t, pk, signer.PublicKey())

	ev, err := signer.Sign(domain.RawEvent{
		Kind:      domain.KindTextNote,
		CreatedAt: 1700000000,
		Tags:      [][]string{{"e", "goal", "", "root"}},
		Content:   "halfway there",
	})
	require.NoError(t, err)
	require.Equal(t, pk, ev.PubKey)
	require.Len(t, ev.ID, 64)
	require.NotEmpty(t, ev.Sig)

	var v Verifier
	require.NoError(t, v.Verify(ev))

	tampered := ev
	tampered.Content = "all the way"
	require.ErrorIs(t, v.Verify(tampered), domain.ErrInvalidSignature)

	unsigned := ev
	unsigned.Sig = ""
	require.ErrorIs(t, v.Verify(unsigned), domain.ErrInvalidSignature)
}

func TestKeyDecoding(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	nsec, err := nip19.EncodePrivateKey(sk)
	require.NoError(t, err)

	fromNsec, err := NewKeySigner(nsec)
	require.NoError(t, err)
	fromHex, err := NewKeySigner(sk)
	require.NoError(t, err)
	require.Equal(t, fromHex.PublicKey(), fromNsec.PublicKey())

	npub, err := nip19.EncodePublicKey(fromHex.PublicKey())
	require.NoError(t, err)
	decoded, err := DecodePubkey(npub)
	require.NoError(t, err)
	require.Equal(t, fromHex.PublicKey(), decoded)

	_, err = NewKeySigner("nope")
	require.Error(t, err)
	_, err = DecodePubkey(nsec)
	require.Error(t, err)
}

func TestFilterConversion(t *testing.T) {
	f := toFilter(domain.Filter{Kinds: []int{domain.KindGoal}, Limit: 10})
	require.Nil(t, f.Tags)
	require.Nil(t, f.Since)

	f = toFilter(domain.Filter{Kinds: []int{domain.KindContactList}, Authors: []string{"a"}, PubkeyRefs: []string{"p1"}})
	require.Equal(t, []string{"p1"}, f.Tags["p"])
	_, hasE := f.Tags["e"]
	require.False(t, hasE)
}
