package node

// Transformer produces the bytes written to a recipient from the bytes read
// from a sender. Implementations must not modify payload.
type Transformer interface {
	Transform(payload []byte) []byte
}

// TransformFunc adapts a function to the Transformer interface.
type TransformFunc func(payload []byte) []byte

func (f TransformFunc) Transform(payload []byte) []byte {
	return f(payload)
}

// UpperCase returns a copy of payload with ASCII a-z mapped to A-Z. Every
// other byte, including non-ASCII and invalid UTF-8, passes through unchanged.
var UpperCase = TransformFunc(func(payload []byte) []byte {
	out := make([]byte, len(payload))
	for i, c := range payload {
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return out
})
