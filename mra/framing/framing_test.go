package framing

import (
	"bytes"
	"errors"
	"testing"
)

func TestPadLengths(t *testing.T) {
	for n := 0; n <= 48; n++ {
		data := bytes.Repeat([]byte{0xaa}, n)
		padded := Pad(data, 16)
		if len(padded)%16 != 0 {
			t.Fatalf("Pad(%d): length %d not block aligned", n, len(padded))
		}
		k := len(padded) - n
		if k < 1 || k > 16 {
			t.Fatalf("Pad(%d): added %d bytes", n, k)
		}
		for _, b := range padded[n:] {
			if int(b) != k {
				t.Fatalf("Pad(%d): pad byte %d, want %d", n, b, k)
			}
		}
	}
}

func TestPadRoundTrip(t *testing.T) {
	for n := 0; n <= 40; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i + n)
		}
		got, err := Unpad(Pad(data, 16))
		if err != nil {
			t.Fatalf("Unpad(Pad(%d)): %v", n, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch at length %d", n)
		}
	}
}

func TestPadHello(t *testing.T) {
	padded := Pad([]byte("Hello"), 16)
	want := append([]byte("Hello"), bytes.Repeat([]byte{0x0b}, 11)...)
	if !bytes.Equal(padded, want) {
		t.Fatalf("Pad = %x", padded)
	}
}

func TestUnpadRejects(t *testing.T) {
	cases := map[string][]byte{
		"empty":       {},
		"zero count":  append(bytes.Repeat([]byte{1}, 15), 0),
		"count > 16":  bytes.Repeat([]byte{17}, 32),
		"count > len": {3, 3},
		"mismatch":    append(bytes.Repeat([]byte{4}, 12), 4, 9, 4, 4),
		"first byte":  append([]byte{1}, bytes.Repeat([]byte{16}, 15)...),
	}
	for name, data := range cases {
		if _, err := Unpad(data); !errors.Is(err, ErrInvalidPadding) {
			t.Fatalf("%s: expected ErrInvalidPadding, got %v", name, err)
		}
	}
}

func TestUnpadFullBlock(t *testing.T) {
	got, err := Unpad(bytes.Repeat([]byte{16}, 16))
	if err != nil {
		t.Fatalf("Unpad: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %x", got)
	}
}

func TestHex(t *testing.T) {
	if s := EncodeHex([]byte{0x00, 0xab, 0xff}); s != "00abff" {
		t.Fatalf("EncodeHex = %q", s)
	}
	for _, s := range []string{"00abff", "00ABFF", "00aBfF"} {
		b, err := DecodeHex(s)
		if err != nil {
			t.Fatalf("DecodeHex(%q): %v", s, err)
		}
		if !bytes.Equal(b, []byte{0x00, 0xab, 0xff}) {
			t.Fatalf("DecodeHex(%q) = %x", s, b)
		}
	}
	for _, s := range []string{"abc", "zz", "0g"} {
		if _, err := DecodeHex(s); !errors.Is(err, ErrMalformedHex) {
			t.Fatalf("DecodeHex(%q): expected ErrMalformedHex, got %v", s, err)
		}
	}
	if s := ShortHex([]byte{1, 2, 3, 4}, 2); s != "0102" {
		t.Fatalf("ShortHex = %q", s)
	}
}
