package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/common"
)

var tokenNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestVerifier(t *testing.T, secret string, now time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(VerifierConfig{
		Secret:    secret,
		Issuer:    "pizza-id",
		Audience:  "storefront",
		ClockSkew: time.Second,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)
	return v
}

func TestVerifierRoundTrip(t *testing.T) {
	v := newTestVerifier(t, "secret", tokenNow)
	want := common.Identity{UserID: "user-1", Role: "admin", Name: "Alice", Email: "alice@example.com"}
	token, err := v.Sign(want, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.True(t, got.IsAdmin())
}

func TestVerifierRejects(t *testing.T) {
	v := newTestVerifier(t, "secret", tokenNow)
	token, err := v.Sign(common.Identity{UserID: "user-1"}, time.Minute)
	require.NoError(t, err)

	_, err = newTestVerifier(t, "other", tokenNow).Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	_, err = newTestVerifier(t, "secret", tokenNow.Add(time.Hour)).Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken, "expired")

	_, err = v.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify("  ")
	require.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := v.Sign(common.Identity{}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(noSubject)
	require.ErrorIs(t, err, ErrInvalidToken, "missing subject")
}

func TestVerifierRejectsForeignIssuer(t *testing.T) {
	tok, err := jwt.NewBuilder().
		Issuer("someone-else").
		Audience([]string{"storefront"}).
		Subject("user-1").
		IssuedAt(tokenNow).
		Expiration(tokenNow.Add(time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("secret")))
	require.NoError(t, err)

	_, err = newTestVerifier(t, "secret", tokenNow).Verify(string(signed))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsOtherAlgorithms(t *testing.T) {
	tok, err := jwt.NewBuilder().Subject("user-1").Expiration(tokenNow.Add(time.Minute)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS512, []byte("secret")))
	require.NoError(t, err)

	_, err = newTestVerifier(t, "secret", tokenNow).Verify(string(signed))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenValidatorAudienceMismatch(t *testing.T) {
	tok, err := jwt.NewBuilder().
		Issuer("pizza-id").
		Audience([]string{"backoffice"}).
		Subject("sub").
		Expiration(tokenNow.Add(time.Minute)).
		Build()
	require.NoError(t, err)
	validator := TokenValidator{Issuer: "pizza-id", Audience: "storefront", Algorithm: jwa.HS256}
	require.Error(t, validator.Validate(tok, jwa.HS256, tokenNow))
	require.Error(t, validator.Validate(tok, jwa.RS256, tokenNow))
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier(VerifierConfig{})
	require.Error(t, err)
}
