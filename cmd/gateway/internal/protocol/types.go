package protocol

const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"

	OpSubscribed   = "subscribed"
	OpUnsubscribed = "unsubscribed"
	OpError        = "error"

	CodeUnsupportedOp  = "UNSUPPORTED_OP"
	CodeInvalidMessage = "INVALID_MESSAGE"
)

// Request is a client command frame. Symbols omitted on an unsubscribe means
// "all symbols this client holds".
type Request struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols,omitempty"`
}

// Ack mirrors the request shape so subscribe and unsubscribe acknowledgements
// can be handled uniformly by clients. Broadcast frames are NOT wrapped in
// this envelope; they are the raw tick payload.
type Ack struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

type ErrorReply struct {
	Op   string `json:"op"`
	Code string `json:"code"`
}
