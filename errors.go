package mdict

import "errors"

// Sentinel errors returned by Open and by lookups. Callers should match
// against these with errors.Is; wrapped context (offending key, block
// index, file path) is attached with github.com/pkg/errors and does not
// change the sentinel identity.
//
// I/O failures carry no sentinel of their own: the underlying
// *os.PathError (or other io error) is wrapped and propagated intact,
// so os.IsNotExist and friends keep working on it.
var (
	// ErrInvalidInput indicates a path with the wrong extension.
	ErrInvalidInput = errors.New("mdict: invalid input")

	// ErrCorruptHeader indicates the XML header or a directory prelude
	// failed its checksum or could not be parsed.
	ErrCorruptHeader = errors.New("mdict: corrupt header")

	// ErrCorruptBlock indicates a key-block or record-block failed its
	// Adler-32 check, or decompression failed. It is scoped to the
	// offending block; other blocks remain usable.
	ErrCorruptBlock = errors.New("mdict: corrupt block")

	// ErrCorruptIndex indicates the key-block or record-block directory
	// violated one of its ordering or count invariants.
	ErrCorruptIndex = errors.New("mdict: corrupt index")

	// ErrUnsupportedVersion indicates a GeneratedByEngineVersion this
	// library does not know how to frame.
	ErrUnsupportedVersion = errors.New("mdict: unsupported version")

	// ErrUnsupportedEncoding indicates an Encoding attribute outside
	// utf-8, utf-16, gbk, big5, latin1.
	ErrUnsupportedEncoding = errors.New("mdict: unsupported encoding")

	// ErrEncryptionRequired indicates encrypted content with no
	// encrypt_key supplied to Open.
	ErrEncryptionRequired = errors.New("mdict: encryption key required")

	// ErrNotFound indicates the key does not exist in the index. This is
	// the only lookup error that is an expected, unlogged condition.
	ErrNotFound = errors.New("mdict: not found")
)
