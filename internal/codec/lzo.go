package codec

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/woozymasta/lzo"
)

// lzoDecompress expands the classic miniLZO (LZO1X) payload used by
// MDict key-blocks and record-blocks. The decompressed size is supplied
// out-of-band by the owning directory entry, since LZO1X carries no
// trailer of its own.
func lzoDecompress(payload []byte, decompressedSize int) ([]byte, error) {
	out, err := lzo.Decompress1X(bytes.NewReader(payload), len(payload), decompressedSize)
	if err != nil {
		return nil, errors.Wrap(err, "lzo1x decompress")
	}
	return out, nil
}
