package oauth

import "testing"

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyCryptPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyCryptPassword: %v", err)
	}
	if !ok {
		t.Errorf("VerifyCryptPassword(correct password) = false, want true")
	}

	ok, err = VerifyCryptPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyCryptPassword: %v", err)
	}
	if ok {
		t.Errorf("VerifyCryptPassword(wrong password) = true, want false")
	}
}

func TestHashPasswordProducesDistinctSalts(t *testing.T) {
	first, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Errorf("HashPassword produced identical output for two calls with the same password")
	}
}

func TestVerifyCryptPasswordRejectsMalformedArgon2id(t *testing.T) {
	if _, err := VerifyCryptPassword("x", "$argon2id$not-enough-fields"); err == nil {
		t.Errorf("VerifyCryptPassword(malformed argon2id) returned nil error, want error")
	}
}
