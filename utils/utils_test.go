package utils

import (
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBitsBytesConvert(t *testing.T) {
	s := rand.NewSource(time.Now().UnixNano())
	r := rand.New(s)

	var bits []bool
	for i := 0; i < 16; i++ {
		if r.Int()%2 == 0 {
			bits = append(bits, true)
		} else {
			bits = append(bits, false)
		}
	}

	bytes := ToBytes(bits)

	for i := uint32(0); i < 16; i++ {
		if GetNthBit(bytes, i) != bits[i] {
			t.Error("Wrong conversion")
		}
	}
	back := ToBits(bytes)
	for i := range bits {
		if back[i] != bits[i] {
			t.Error("Wrong conversion at bit", i)
		}
	}
}

func TestUInt32ToBytes(t *testing.T) {
	numInt := uint32(42)
	b := UInt32ToBytes(numInt)
	if binary.LittleEndian.Uint32(b) != numInt {
		t.Fatal("Conversion to bytes looks wrong!")
	}
}

func TestLongToBytes(t *testing.T) {
	numInt := int64(42)
	b := LongToBytes(numInt)
	if int64(binary.LittleEndian.Uint64(b)) != numInt {
		t.Fatal("Conversion to bytes looks wrong!")
	}
	numInt = int64(-42)
	b = LongToBytes(numInt)
	if int64(binary.LittleEndian.Uint64(b)) != numInt {
		t.Fatal("Conversion to bytes looks wrong!")
	}
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := WriteFile(path, []byte("one"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(path, []byte("two"), 0600); err == nil {
		t.Error("Expect WriteFile to refuse overwriting", path)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != "one" {
		t.Error("Expect", "one", "got", string(buf))
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("keys.toml", "/etc/kt/config.toml"); got != "/etc/kt/keys.toml" {
		t.Error("Expect", "/etc/kt/keys.toml", "got", got)
	}
	if got := ResolvePath("/abs/keys.toml", "/etc/kt/config.toml"); got != "/abs/keys.toml" {
		t.Error("Expect", "/abs/keys.toml", "got", got)
	}
}
