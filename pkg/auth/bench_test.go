package auth

import (
	"testing"
	"time"
)

func BenchmarkTokenIssue(b *testing.B) {
	issuer, err := NewTokenIssuer("s3cret", time.Hour)
	if err != nil {
		b.Fatal(err)
	}
	u := testUser()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := issuer.Issue(u); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTokenVerify(b *testing.B) {
	issuer, err := NewTokenIssuer("s3cret", time.Hour)
	if err != nil {
		b.Fatal(err)
	}
	token, err := issuer.Issue(testUser())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := issuer.Verify(token); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPasswordVerify measures login cost at the production work factor.
func BenchmarkPasswordVerify(b *testing.B) {
	if testing.Short() {
		b.Skip("Skipping bcrypt benchmark in short mode")
	}
	h := NewBcryptHasher(DefaultBcryptCost)
	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if ok, err := h.Verify("correct horse battery staple", hash); err != nil || !ok {
			b.Fatalf("verify = %v, %v", ok, err)
		}
	}
}
