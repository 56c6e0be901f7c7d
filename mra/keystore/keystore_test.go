package keystore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/TheusHen/mra/mra/mrsa"
)

// Cheap parameters keep the tests fast.
var testParams = Params{Time: 1, MemoryKiB: 1024, Threads: 1}

func testKey(t *testing.T) *mrsa.TriplePrimeKey {
	t.Helper()
	key, err := mrsa.GenerateKey(512)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func TestSaveLoad(t *testing.T) {
	key := testKey(t)
	path := filepath.Join(t.TempDir(), "receiver.key")
	pass := []byte("correct horse battery staple")

	if err := Save(path, key, pass, testParams); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("key file mode %v, want 0600", st.Mode().Perm())
	}

	got, err := Load(path, pass)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for name, pair := range map[string][2][]byte{
		"N": {got.N, key.N}, "D": {got.D, key.D}, "P": {got.P, key.P},
		"Q": {got.Q, key.Q}, "R": {got.R, key.R}, "E": {got.E, key.E},
	} {
		if !bytes.Equal(pair[0], pair[1]) {
			t.Fatalf("%s mismatch after reload", name)
		}
	}

	raw, _ := os.ReadFile(path)
	fp, err := Fingerprint(raw)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp != key.Public().Fingerprint() {
		t.Fatalf("stored fingerprint mismatch")
	}
	if bytes.Contains(raw, key.D) {
		t.Fatalf("private exponent stored in the clear")
	}
}

func TestWrongPassphrase(t *testing.T) {
	b, err := Seal(testKey(t), []byte("right"), testParams)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := Open(b, []byte("wrong")); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestHeaderIsAuthenticated(t *testing.T) {
	b, err := Seal(testKey(t), []byte("pw"), testParams)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	var env envelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	env.Fingerprint[0] ^= 0xff
	tampered, _ := cbor.Marshal(env)
	if _, err := Open(tampered, []byte("pw")); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase for tampered header, got %v", err)
	}

	env.Fingerprint[0] ^= 0xff
	env.Version = 9
	future, _ := cbor.Marshal(env)
	if _, err := Open(future, []byte("pw")); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestOpenRejectsBadParams(t *testing.T) {
	b, err := Seal(testKey(t), []byte("pw"), testParams)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	var env envelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	for name, p := range map[string]Params{
		"zero time":    {Time: 0, MemoryKiB: 1024, Threads: 1},
		"zero threads": {Time: 1, MemoryKiB: 1024, Threads: 0},
		"all zero":     {},
		"tiny memory":  {Time: 1, MemoryKiB: 7, Threads: 1},
		"huge memory":  {Time: 1, MemoryKiB: 1 << 31, Threads: 1},
		"huge time":    {Time: 1 << 20, MemoryKiB: 1024, Threads: 1},
	} {
		t.Run(name, func(t *testing.T) {
			bad := env
			bad.Params = p
			raw, err := cbor.Marshal(bad)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if _, err := Open(raw, []byte("pw")); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}

	if _, err := Seal(testKey(t), []byte("pw"), Params{}); err == nil {
		t.Fatal("Seal accepted zero params")
	}
}

func TestCorrupt(t *testing.T) {
	if _, err := Open([]byte{0xff, 0x00}, []byte("pw")); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing"), []byte("pw")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
