package estimator

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// maxMessageSize guards against reading a corrupt length prefix
const maxMessageSize = 64 << 20

// Request is the message sent to a worker process for each frame
type Request struct {
	Seq       uint64 `msgpack:"seq"`
	Width     int    `msgpack:"width"`
	Height    int    `msgpack:"height"`
	FrameData []byte `msgpack:"frame_data"`
}

// Response is the message a worker process returns for each frame.
// Landmarks are rows of [x, y, z, visibility], empty when no pose was found.
type Response struct {
	Seq       uint64      `msgpack:"seq"`
	Landmarks [][]float64 `msgpack:"landmarks"`
	Error     string      `msgpack:"error,omitempty"`
}

// WriteMessage encodes v as msgpack and writes it with a 4 byte big endian
// length prefix so the receiver can find message boundaries in the stream
func WriteMessage(w io.Writer, v interface{}) error {

	data, err := msgpack.Marshal(v)

	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// ReadMessage reads one length prefixed msgpack message into v.  io.EOF is
// returned unwrapped when the stream ends cleanly between messages.
func ReadMessage(r io.Reader, v interface{}) error {

	var lengthBuf [4]byte

	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("failed to read length prefix: %w", err)
	}

	size := binary.BigEndian.Uint32(lengthBuf[:])

	if size > maxMessageSize {
		return fmt.Errorf("message of %d bytes exceeds limit", size)
	}

	data := make([]byte, size)

	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("failed to read message body: %w", err)
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return nil
}
