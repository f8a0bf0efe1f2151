package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestCodecRoundTrip(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0).UTC()
	codec, err := NewCodec(testSecret, WithIssuer("wishmaster"), WithClock(fixedClock(issued)))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	raw, err := codec.Encode(Claims{PrincipalID: "p-1", Audience: AudienceAccess}, 30*time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	claims, err := codec.Decode(raw, AudienceAccess)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.PrincipalID != "p-1" {
		t.Fatalf("unexpected principal id: %s", claims.PrincipalID)
	}
	if claims.Audience != AudienceAccess {
		t.Fatalf("unexpected audience: %s", claims.Audience)
	}
	if !claims.IssuedAt.Equal(issued) {
		t.Fatalf("issued-at not preserved: %v", claims.IssuedAt)
	}
	if !claims.ExpiresAt.Equal(issued.Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", claims.ExpiresAt)
	}
}

func TestCodecExpiryBoundaryIsExclusive(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0).UTC()
	now := issued
	codec, err := NewCodec(testSecret, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	raw, err := codec.Encode(Claims{PrincipalID: "p-1", Audience: AudienceAccess}, time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// One second before expiry the token is still valid.
	now = issued.Add(59 * time.Second)
	if _, err := codec.Decode(raw, AudienceAccess); err != nil {
		t.Fatalf("expected valid token before expiry, got %v", err)
	}

	// Exactly at the expiry instant the token is already expired.
	now = issued.Add(time.Minute)
	if _, err := codec.Decode(raw, AudienceAccess); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at boundary, got %v", err)
	}

	now = issued.Add(2 * time.Minute)
	if _, err := codec.Decode(raw, AudienceAccess); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired past boundary, got %v", err)
	}
}

func TestCodecAudienceMismatch(t *testing.T) {
	codec, err := NewCodec(testSecret)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	raw, err := codec.Encode(Claims{PrincipalID: "p-1", TokenID: "t-1", Audience: AudienceRefresh}, time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := codec.Decode(raw, AudienceAccess); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
	if _, err := codec.Decode(raw, AudienceRefresh); err != nil {
		t.Fatalf("expected valid refresh decode, got %v", err)
	}
}

func TestCodecRejectsTamperedToken(t *testing.T) {
	codec, err := NewCodec(testSecret)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	raw, err := codec.Encode(Claims{PrincipalID: "p-1", Audience: AudienceAccess}, time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %s", raw)
	}
	tampered := parts[0] + "." + flipFirstChar(parts[1]) + "." + parts[2]
	if _, err := codec.Decode(tampered, AudienceAccess); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	if _, err := codec.Decode("not-a-token", AudienceAccess); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for garbage, got %v", err)
	}
}

func TestCodecRejectsWrongKey(t *testing.T) {
	codec, err := NewCodec(testSecret)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	other, err := NewCodec([]byte("fedcba9876543210fedcba9876543210"))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	raw, err := codec.Encode(Claims{PrincipalID: "p-1", Audience: AudienceAccess}, time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := other.Decode(raw, AudienceAccess); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestCodecRejectsRefreshWithoutTokenID(t *testing.T) {
	codec, err := NewCodec(testSecret)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	raw, err := codec.Encode(Claims{PrincipalID: "p-1", Audience: AudienceRefresh}, time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := codec.Decode(raw, AudienceRefresh); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func flipFirstChar(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	return string(b)
}
