package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/freezer/internal/model"
)

var admin = &model.User{ID: 1, Username: "admin", Role: model.RoleAdmin}

func TestIssueAndValidate(t *testing.T) {
	tokens := NewTokens("test-secret-key")

	token, issued, err := tokens.Issue(admin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != 1 || claims.Username != "admin" || claims.Role != model.RoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Errorf("expected jti %q, got %q", issued.ID, claims.ID)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	tokens := NewTokens("secret")
	_, a, _ := tokens.Issue(admin)
	_, b, _ := tokens.Issue(admin)
	if a.ID == b.ID {
		t.Error("expected distinct token IDs")
	}
}

func TestValidateWrongSecret(t *testing.T) {
	token, _, _ := NewTokens("secret1").Issue(admin)

	if _, err := NewTokens("secret2").Validate(token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateInvalid(t *testing.T) {
	if _, err := NewTokens("secret").Validate("not-a-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateExpired(t *testing.T) {
	tokens := NewTokens("secret")
	tokens.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, _, _ := tokens.Issue(admin)

	if _, err := NewTokens("secret").Validate(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokens("secret").Validate(token); err == nil {
		t.Error("expected error for HS512 token")
	}
}

func TestWithExpiry(t *testing.T) {
	tokens := NewTokens("test").WithExpiry(time.Hour)
	_, claims, _ := tokens.Issue(admin)

	diff := time.Until(claims.ExpiresAt.Time) - time.Hour
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}
