package cache

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes cached payloads.
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

// JSONCodec stores payloads as JSON. Decoded numbers are float64.
// The zero value is ready to use.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Decode(b []byte) (any, error) {
	var v any
	err := json.Unmarshal(b, &v)
	return v, err
}

// MsgpackCodec stores payloads with vmihailenco/msgpack/v5.
// Smaller than JSON; decoded integers keep their integer width.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (MsgpackCodec) Decode(b []byte) (any, error) {
	var v any
	err := msgpack.Unmarshal(b, &v)
	return v, err
}

// CodecByName returns the codec registered under name. Empty selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("cache: unknown codec %q", name)
	}
}
