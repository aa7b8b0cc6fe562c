package protocol

// Codec converts between wire bytes and Command/Response values.
//
// Device side: DecodeCommand then EncodeResponse. Host side: EncodeCommand
// then DecodeResponse. Every decode path returns an error on malformed
// input and never panics.
type Codec interface {
	Name() string
	DecodeCommand(data []byte) (Command, error)
	EncodeResponse(resp Response) ([]byte, error)
	EncodeCommand(cmd Command) ([]byte, error)
	DecodeResponse(data []byte) (Response, error)
}
