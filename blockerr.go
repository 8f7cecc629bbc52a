package mdict

import (
	stderrors "errors"

	"github.com/gomdict/mdict/internal/codec"
	"github.com/pkg/errors"
)

// wrapBlockErr translates a codec.Decompress failure into this
// package's own ErrCorruptBlock sentinel when the underlying cause was
// a checksum or framing problem, so callers can errors.Is against this
// package's own error values rather than an internal/codec one.
// Other failures (e.g. an I/O error reading the block) pass through
// wrapped but with their original identity intact.
func wrapBlockErr(err error, format string, args ...interface{}) error {
	if stderrors.Is(err, codec.ErrCorruptBlock) {
		return errors.Wrapf(ErrCorruptBlock, format+": %s", append(args, err)...)
	}
	return errors.Wrapf(err, format, args...)
}
