// AngelaMos | 2026
// cbor_test.go

package codec

import (
	"bytes"
	"testing"
	"time"
)

type sampleRecord struct {
	Name  string    `cbor:"name"`
	Count uint16    `cbor:"count"`
	At    time.Time `cbor:"at"`
}

func TestRoundtripKeepsTimePrecision(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 123456789, time.UTC)
	original := sampleRecord{Name: "lecture", Count: 42, At: at}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Name != original.Name || decoded.Count != original.Count {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
	if !decoded.At.Equal(at) {
		t.Errorf("time: got %v, want %v", decoded.At, at)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	record := sampleRecord{Name: "a", Count: 7}

	first, err := Marshal(record)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(record)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestUint64KeysSortByteWise(t *testing.T) {
	values := []uint64{0, 1, 23, 24, 255, 256, 65535, 65536, 1 << 32, 1<<64 - 1}

	var prev []byte
	for i, v := range values {
		data, err := CBOR{}.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%d): %v", v, err)
		}
		if i > 0 && bytes.Compare(prev, data) >= 0 {
			t.Errorf("encoding of %d (%x) does not sort after %d (%x)", v, data, values[i-1], prev)
		}
		prev = data
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var record sampleRecord
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &record); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}
