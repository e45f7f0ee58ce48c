package executor

// ============================================================================
// gRPC JSON Codec
// Responsibility: message (de)serialization for the executor service.
//
// The executor exchange is plain JSON structs, not generated protobuf
// messages, so the wire format is a registered custom codec. Clients select
// it per call via grpc.CallContentSubtype(CodecName); servers pick it up
// automatically from the request's content-subtype once the codec is
// registered.
// ============================================================================

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype of the executor JSON codec.
const CodecName = "gaia-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("gaia-json codec: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }
