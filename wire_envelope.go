package atomix

// clientEnvelope is the one wire-level message ApplyClient sends in either
// direction: a Read/Write/Delete request forwarded to the leader, or the
// resulting ClientResponse/Error forwarded back. A single concrete type
// keeps the hand-written service descriptor (grpc_service.go) symmetric --
// msgpack has no trouble with the unused-field fan-out, and the core never
// sees this type at all (encode/decode happen only at the transport edge).
type clientEnvelope struct {
	Kind string // "read", "write", or "delete"

	Read   *ReadRequest
	Write  *WriteRequest
	Delete *DeleteRequest

	Response *ClientResponse
	ErrKind  Kind
	ErrMsg   string
}

// encodeClientRequest packages a core Read/Write/Delete request for the
// wire.
func encodeClientRequest(request interface{}) *clientEnvelope {
	switch req := request.(type) {
	case *ReadRequest:
		return &clientEnvelope{Kind: "read", Read: req}
	case *WriteRequest:
		return &clientEnvelope{Kind: "write", Write: req}
	case *DeleteRequest:
		return &clientEnvelope{Kind: "delete", Delete: req}
	default:
		return &clientEnvelope{Kind: "unknown"}
	}
}

// decodeClientRequest recovers the typed request a clientEnvelope carries,
// for the receiving side to hand to Context.Handle.
func decodeClientRequest(env *clientEnvelope) (interface{}, error) {
	switch env.Kind {
	case "read":
		return env.Read, nil
	case "write":
		return env.Write, nil
	case "delete":
		return env.Delete, nil
	default:
		return nil, newError(KindIllegalState, "unrecognized client envelope kind")
	}
}

// encodeClientResult packages the outcome of dispatching a client request
// for the return trip.
func encodeClientResult(resp interface{}, err error) *clientEnvelope {
	if err != nil {
		kind, msg := KindNone, err.Error()
		if ae, ok := err.(*Error); ok {
			kind, msg = ae.Kind, ae.Msg
		}
		return &clientEnvelope{ErrKind: kind, ErrMsg: msg}
	}
	if cr, ok := resp.(*ClientResponse); ok {
		return &clientEnvelope{Response: cr}
	}
	return &clientEnvelope{Response: &ClientResponse{}}
}

// decodeClientResult recovers (response, error) from a clientEnvelope
// returned by a peer.
func decodeClientResult(env *clientEnvelope) (interface{}, error) {
	if env.ErrMsg != "" {
		return nil, newError(env.ErrKind, env.ErrMsg)
	}
	return env.Response, nil
}
