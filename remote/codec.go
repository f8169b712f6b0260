package remote

import "github.com/chazu/oapi/wire"

// cborCodec carries wire.Call messages as canonical CBOR.
type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Marshal(v any) ([]byte, error) { return wire.Marshal(v) }

func (cborCodec) Unmarshal(data []byte, v any) error { return wire.Unmarshal(data, v) }
