package atomix

import (
	"github.com/ugorji/go/codec"
	"google.golang.org/grpc/encoding"
)

// msgpackCodecName is the gRPC content-subtype this repo's transport
// negotiates instead of protoc-generated protobuf wire format. Registering
// it through google.golang.org/grpc/encoding makes it a first-class gRPC
// codec: the client tags every call with this content-subtype, and grpc-go
// looks the codec up by name on both ends -- this repo never hand-rolls
// framing.
const msgpackCodecName = "msgpack"

func init() {
	encoding.RegisterCodec(msgpackGRPCCodec{})
}

// msgpackGRPCCodec adapts github.com/ugorji/go/codec's msgpack handle to
// grpc-go's encoding.Codec interface. Unlike protobuf's generated
// marshalers, msgpack here works by reflection over any exported-field Go
// struct, so the RPC request/response types defined in rpc_types.go need no
// code generation to be wire-compatible.
type msgpackGRPCCodec struct{}

func (msgpackGRPCCodec) Name() string { return msgpackCodecName }

func (msgpackGRPCCodec) Marshal(v interface{}) ([]byte, error) {
	var buf []byte
	var h codec.MsgpackHandle
	enc := codec.NewEncoderBytes(&buf, &h)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf, nil
}

func (msgpackGRPCCodec) Unmarshal(data []byte, v interface{}) error {
	var h codec.MsgpackHandle
	dec := codec.NewDecoderBytes(data, &h)
	return dec.Decode(v)
}
