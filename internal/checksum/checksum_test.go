package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestOf(t *testing.T) {
	if Of([]byte("ab"), []byte("c")) == Of([]byte("a"), []byte("bc")) {
		t.Error("part boundaries should change the digest")
	}
	if Of([]byte("x"), nil) != Of([]byte("x"), []byte{}) {
		t.Error("nil and empty parts should digest alike")
	}
	if Of([]byte("x")) == Of([]byte("x"), nil) {
		t.Error("an extra empty part should change the digest")
	}
}
