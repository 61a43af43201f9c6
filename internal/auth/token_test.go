package auth

import (
	"testing"

	"github.com/spec-kit/support-request-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	role := domain.AgentRoleSupervisor

	token, expiresAt, err := tm.GenerateToken("agent-1", domain.SubjectTypeAgent, &role)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if expiresAt.IsZero() {
		t.Fatal("expiry not set")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SubjectID != "agent-1" || claims.Subject != domain.SubjectTypeAgent {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Role == nil || *claims.Role != role {
		t.Errorf("role = %v, want %s", claims.Role, role)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer := NewTokenManager("secret-a", 5)
	verifier := NewTokenManager("secret-b", 5)

	token, _, err := issuer.GenerateToken("customer-1", domain.SubjectTypeCustomer, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("token verified with wrong secret")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "hunter2"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}
