// AngelaMos | 2026
// cbor.go

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec converts keys and values to and from their stored bytes.
// Implementations must be deterministic: equal inputs produce equal
// bytes, because encoded keys are compared byte-wise by the store.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	encOptions := cbor.CoreDetEncOptions()
	// Reservation times keep sub-second precision and their offset.
	encOptions.Time = cbor.TimeRFC3339Nano

	var err error
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR is the default store codec: RFC 8949 core deterministic encoding.
// Unsigned integers encode big-endian with a length prefix, so byte order
// of encoded uint64 keys matches numeric order.
type CBOR struct{}

func (CBOR) Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func (CBOR) Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Marshal encodes v with the default codec.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v with the default codec.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose returns CBOR diagnostic notation for data. Used when logging
// entries that fail to decode.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
