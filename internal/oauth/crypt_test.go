package oauth

import "testing"

func TestVerifyCryptPasswordSHA256KnownVectors(t *testing.T) {
	cases := []struct {
		password string
		hash     string
	}{
		{"Hello world!", "$5$saltstring$5B8vYYiY.CVt1RlTTf8KbXBH3hsxY/GNooZaBBGWEc5"},
		{"Hello world!", "$5$rounds=10000$saltstringsaltstring$3xv.VbSHBb41AL9AvLeujZkZRBAwqFMz2.opqey6IcA"},
		{"This is just a test", "$5$rounds=5000$toolongsaltstring$Un/5jzAHMgOGZ5.mWJpuVolil07guHPvOW8mGRcvxa5"},
	}
	for _, c := range cases {
		ok, err := VerifyCryptPassword(c.password, c.hash)
		if err != nil {
			t.Fatalf("VerifyCryptPassword(%q): %v", c.password, err)
		}
		if !ok {
			t.Errorf("VerifyCryptPassword(%q, %q) = false, want true", c.password, c.hash)
		}
	}
}

func TestVerifyCryptPasswordSHA512KnownVectors(t *testing.T) {
	cases := []struct {
		password string
		hash     string
	}{
		{"Hello world!", "$6$saltstring$svn8UoSVapNtMuq1ukKS4tPQd8iKwSMHWjl/O817G3uBnIFNjnQJuesI68u4OTLiBFdcbYEdFCoEOfaS7uD9v0"},
	}
	for _, c := range cases {
		ok, err := VerifyCryptPassword(c.password, c.hash)
		if err != nil {
			t.Fatalf("VerifyCryptPassword(%q): %v", c.password, err)
		}
		if !ok {
			t.Errorf("VerifyCryptPassword(%q, %q) = false, want true", c.password, c.hash)
		}
	}
}

func TestVerifyCryptPasswordRejectsWrongPassword(t *testing.T) {
	const hash = "$5$saltstring$5B8vYYiY.CVt1RlTTf8KbXBH3hsxY/GNooZaBBGWEc5"
	ok, err := VerifyCryptPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyCryptPassword: %v", err)
	}
	if ok {
		t.Error("VerifyCryptPassword matched an incorrect password")
	}
}

func TestVerifyCryptPasswordMD5CryptSelfConsistent(t *testing.T) {
	computed, err := md5Crypt("hunter2", "$1$abcdefgh$", "$1$")
	if err != nil {
		t.Fatalf("md5Crypt: %v", err)
	}
	ok, err := VerifyCryptPassword("hunter2", computed)
	if err != nil {
		t.Fatalf("VerifyCryptPassword: %v", err)
	}
	if !ok {
		t.Errorf("VerifyCryptPassword did not accept a hash it just produced: %s", computed)
	}

	ok, err = VerifyCryptPassword("wrong", computed)
	if err != nil {
		t.Fatalf("VerifyCryptPassword: %v", err)
	}
	if ok {
		t.Error("VerifyCryptPassword accepted the wrong password against an md5Crypt hash")
	}
}

func TestVerifyCryptPasswordApr1SelfConsistent(t *testing.T) {
	computed, err := md5Crypt("s3cr3t", "$apr1$saltsalt$", "$apr1$")
	if err != nil {
		t.Fatalf("md5Crypt: %v", err)
	}
	ok, err := VerifyCryptPassword("s3cr3t", computed)
	if err != nil {
		t.Fatalf("VerifyCryptPassword: %v", err)
	}
	if !ok {
		t.Errorf("VerifyCryptPassword did not accept an apr1 hash it just produced: %s", computed)
	}
}

func TestVerifyCryptPasswordUnsupportedFormat(t *testing.T) {
	if _, err := VerifyCryptPassword("x", "plaintextpassword"); err == nil {
		t.Error("expected an error for an unrecognized hash format")
	}
}
