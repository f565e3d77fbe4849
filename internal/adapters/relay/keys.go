package relay

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	"zapgoals/internal/domain"
)

// KeySigner signs events with a server held secret key.
type KeySigner struct {
	secret string
	pubkey string
}

var _ domain.Signer = (*KeySigner)(nil)

// NewKeySigner accepts a secret key as nsec or 64 hex characters.
func NewKeySigner(key string) (*KeySigner, error) {
	secret, err := decodeKey(key, "nsec")
	if err != nil {
		return nil, err
	}
	pubkey, err := nostr.GetPublicKey(secret)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	return &KeySigner{secret: secret, pubkey: pubkey}, nil
}

// PublicKey returns the hex public key.
func (s *KeySigner) PublicKey() string {
	return s.pubkey
}

// Sign fills id, pubkey and signature of ev.
func (s *KeySigner) Sign(ev domain.RawEvent) (domain.RawEvent, error) {
	n := toNostr(ev)
	n.PubKey = s.pubkey
	if err := n.Sign(s.secret); err != nil {
		return domain.RawEvent{}, fmt.Errorf("sign event: %w", err)
	}
	return fromNostr(&n), nil
}

// Verifier checks event ids and Schnorr signatures.
type Verifier struct{}

var _ domain.Verifier = Verifier{}

// Verify rejects events whose id does not match their content or whose
// signature does not verify.
func (Verifier) Verify(ev domain.RawEvent) error {
	if ev.ID == "" || ev.Sig == "" || ev.PubKey == "" {
		return fmt.Errorf("%w: event is not signed", domain.ErrInvalidSignature)
	}
	n := toNostr(ev)
	if n.GetID() != ev.ID {
		return fmt.Errorf("%w: id does not match content", domain.ErrInvalidSignature)
	}
	ok, err := n.CheckSignature()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	if !ok {
		return fmt.Errorf("%w: signature mismatch", domain.ErrInvalidSignature)
	}
	return nil
}

// DecodePubkey accepts npub or hex and returns hex.
func DecodePubkey(s string) (string, error) {
	return decodeKey(s, "npub")
}

func decodeKey(s, prefix string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, prefix+"1") {
		p, value, err := nip19.Decode(s)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", prefix, err)
		}
		key, ok := value.(string)
		if p != prefix || !ok {
			return "", fmt.Errorf("decode %s: unexpected %s payload", prefix, p)
		}
		return key, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("key must be %s or 64 hex characters", prefix)
	}
	return strings.ToLower(s), nil
}
