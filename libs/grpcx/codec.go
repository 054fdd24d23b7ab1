package grpcx

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// JSONCodecName is the gRPC content-subtype for JSON-encoded messages
// ("application/grpc+json"). Services in this repo exchange plain Go structs
// over it instead of generated protobuf types.
const JSONCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// WithJSONCodec makes every call on the connection use the JSON codec.
func WithJSONCodec() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.CallContentSubtype(JSONCodecName))
}
