package hailstormpb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec registers itself under the "proto" content-subtype name, the one
// grpc-go selects by default when a call specifies no codec explicitly. That
// lets HailstormServiceClient/Server dial and serve with no extra call
// options, exactly like a real protoc-gen-go client would.
//
// A conformant protoc-gen-go/protoc-gen-go-grpc pair emits message types that
// implement proto.Message via generated descriptors, which requires running
// protoc; these wire types are hand-authored instead, so they carry plain
// struct tags rather than a proto reflection surface. Swapping in a
// JSON-based codec keeps the rest of the client/server stub shape (streams,
// ServiceDesc, dial/serve flow) identical to generated code while avoiding a
// protobuf binary encoder that only protoc's descriptor machinery can supply
// correctly.
type jsonCodec struct{}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "proto"
}
