package relay

import "errors"

// Tag identifies the message kind carried by a wire frame.
type Tag byte

// Wire tags. The tag is always the first byte of a frame; the payload
// starts at byte index 2, after a one-byte separator.
const (
	TagCommand         Tag = 'C' // control query or screenshot request
	TagModelData       Tag = 'D' // rendered model for the browser
	TagConfigPush      Tag = 'S' // viewer config for the browser
	TagBrowserUpdate   Tag = 'U' // ui changes, screenshots, logs from the browser
	TagBrowserRegister Tag = 'L' // browser claims the viewer role
	TagBackendRequest  Tag = 'B' // model tree for the dispatcher
	TagBackendResponse Tag = 'R' // dispatcher result for the browser
)

// ErrShortMessage reports a frame too short to carry a tag and payload.
var ErrShortMessage = errors.New("relay: message shorter than envelope header")

// Envelope is one decoded wire frame.
type Envelope struct {
	Tag     Tag
	Payload []byte
}

// Decode splits a raw frame into tag and payload. The separator byte
// between them is skipped, never inspected.
func Decode(raw []byte) (Envelope, error) {
	if len(raw) < 2 {
		return Envelope{}, ErrShortMessage
	}
	return Envelope{Tag: Tag(raw[0]), Payload: raw[2:]}, nil
}

// Encode frames a payload under the given tag.
func Encode(tag Tag, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2)
	out = append(out, byte(tag), ':')
	return append(out, payload...)
}
