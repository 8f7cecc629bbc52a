package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// zlibInflate inflates a raw DEFLATE stream. MDX/MDD "zlib" blocks are not
// wrapped in the standard 2-byte zlib header / 4-byte trailer: the
// Adler-32 lives in the codec-dispatch envelope (see dispatch.go), and the
// payload here is the bare DEFLATE stream, so klauspost/compress/flate
// (raw inflate, no zlib framing) is the correct reader rather than
// klauspost/compress/zlib.
func zlibInflate(payload []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(payload))
	defer fr.Close()

	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, errors.Wrap(err, "inflate")
	}
	return out, nil
}
