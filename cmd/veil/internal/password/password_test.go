package password

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(MinCost)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func TestHasher_Hash(t *testing.T) {
	h := newTestHasher(t)

	tests := []struct {
		name      string
		plaintext string
		wantErr   bool
	}{
		{name: "valid password", plaintext: "MyAmazingPassw0rd"},
		{name: "empty password", plaintext: ""},
		{name: "unicode password", plaintext: "测试密码🔒"},
		{name: "special chars", plaintext: "!@#$%^&*()_+-={}[]|\\:;\"'<>?,./~`"},
		{name: "null byte", plaintext: "test\x00password"},
		{name: "max length", plaintext: strings.Repeat("a", MaxLength)},
		{name: "over max length", plaintext: strings.Repeat("a", MaxLength+1), wantErr: true},
		{name: "far over max length", plaintext: strings.Repeat("a", 200), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, err := h.Hash(tt.plaintext)

			if tt.wantErr {
				if !errors.Is(err, ErrEncoding) {
					t.Fatalf("Expected ErrEncoding, got %v", err)
				}
				if digest != nil {
					t.Errorf("Expected nil digest on error, got %q", digest)
				}
				if tt.plaintext != "" && strings.Contains(err.Error(), tt.plaintext) {
					t.Error("error message must not contain the plaintext")
				}
				return
			}

			if err != nil {
				t.Fatalf("Hash failed: %v", err)
			}
			if !bytes.HasPrefix(digest, []byte("$2a$04$")) {
				t.Errorf("Expected bcrypt prefix $2a$04$, got %q", digest)
			}
			if len(digest) != 60 {
				t.Errorf("Expected 60 byte digest, got %d", len(digest))
			}
			if !h.Verify(digest, tt.plaintext) {
				t.Error("Verify(Hash(p), p) = false, want true")
			}
		})
	}
}

func TestHasher_HashIsSalted(t *testing.T) {
	h := newTestHasher(t)

	first, err := h.Hash("same password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := h.Hash("same password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if bytes.Equal(first, second) {
		t.Error("two digests of the same plaintext must differ")
	}
	if len(first) != len(second) {
		t.Errorf("digest length differs: %d vs %d", len(first), len(second))
	}
}

func TestVerify(t *testing.T) {
	h := newTestHasher(t)
	digest, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	tests := []struct {
		name      string
		digest    Digest
		candidate string
		want      bool
	}{
		{name: "correct password", digest: digest, candidate: "correct horse", want: true},
		{name: "wrong password", digest: digest, candidate: "correct horsf", want: false},
		{name: "prefix of password", digest: digest, candidate: "correct", want: false},
		{name: "empty candidate", digest: digest, candidate: "", want: false},
		{name: "over-length candidate", digest: digest, candidate: "correct horse" + strings.Repeat("x", MaxLength), want: false},
		{name: "nil digest", digest: nil, candidate: "anything", want: false},
		{name: "garbage digest", digest: Digest("\x00\xff garbage bytes"), candidate: "anything", want: false},
		{name: "truncated digest", digest: digest[:30], candidate: "correct horse", want: false},
		{name: "unsupported version", digest: Digest("$1$" + string(digest[3:])), candidate: "correct horse", want: false},
		{name: "bad cost", digest: Digest("$2a$99$" + string(digest[7:])), candidate: "correct horse", want: false},
		{name: "non-base64 salt", digest: Digest("$2a$04$" + strings.Repeat("!", 53)), candidate: "anything", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify(tt.digest, tt.candidate); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestVerify_2bPrefix checks interoperability with implementations that
// write the $2b$ version tag.
func TestVerify_2bPrefix(t *testing.T) {
	h := newTestHasher(t)
	digest, err := h.Hash("interop")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	other := Digest("$2b$" + string(digest[4:]))
	if !Verify(other, "interop") {
		t.Error("Expected $2b$ digest to verify")
	}
}

func TestHashAndVerify_EmptyPlaintext(t *testing.T) {
	digest, err := Hash("")
	if err != nil {
		t.Fatalf("Hash(\"\") failed: %v", err)
	}

	cost, err := Cost(digest)
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	if cost != DefaultCost {
		t.Errorf("Expected cost %d, got %d", DefaultCost, cost)
	}
	if !Verify(digest, "") {
		t.Error("Verify(Hash(\"\"), \"\") = false, want true")
	}
	if Verify(digest, " ") {
		t.Error("Verify(Hash(\"\"), \" \") = true, want false")
	}
}

func TestNewHasher(t *testing.T) {
	tests := []struct {
		name    string
		cost    int
		wantErr bool
	}{
		{name: "minimum cost", cost: MinCost},
		{name: "default cost", cost: DefaultCost},
		{name: "maximum cost", cost: MaxCost},
		{name: "cost too low", cost: MinCost - 1, wantErr: true},
		{name: "cost too high", cost: MaxCost + 1, wantErr: true},
		{name: "zero cost", cost: 0, wantErr: true},
		{name: "negative cost", cost: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHasher(tt.cost)
			if tt.wantErr {
				if !errors.Is(err, ErrEncoding) {
					t.Errorf("Expected ErrEncoding, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewHasher failed: %v", err)
			}
			if h.Cost() != tt.cost {
				t.Errorf("Cost() = %d, want %d", h.Cost(), tt.cost)
			}
		})
	}
}

func TestHasher_NeedsRehash(t *testing.T) {
	weak := newTestHasher(t)
	strong, err := NewHasher(MinCost + 1)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	digest, err := weak.Hash("rotate me")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if weak.NeedsRehash(digest) {
		t.Error("digest at hasher cost must not need rehash")
	}
	if !strong.NeedsRehash(digest) {
		t.Error("digest below hasher cost must need rehash")
	}
	if !strong.NeedsRehash(Digest("not a digest")) {
		t.Error("unparsable digest must need rehash")
	}
}

func TestHasher_Concurrent(t *testing.T) {
	h := newTestHasher(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			digest, err := h.Hash("shared")
			if err != nil {
				t.Errorf("Hash failed: %v", err)
				return
			}
			if !h.Verify(digest, "shared") {
				t.Error("Verify failed under concurrency")
			}
		}()
	}
	wg.Wait()
}

func TestDigest_String(t *testing.T) {
	d := Digest("$2a$04$abc")
	if d.String() != "$2a$04$abc" {
		t.Errorf("String() = %q", d.String())
	}
}
