package cloudstore

import "bytes"

// newByteReader wraps data in a reader that also implements io.Seeker, so
// Client.Do can rewind it before a retry.
func newByteReader(data []byte) *bytes.Reader {
	return bytes.NewReader(data)
}
