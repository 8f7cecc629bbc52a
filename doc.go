/*

Package mdict is a decoder/reader for MDX headword dictionaries and
their companion MDD resource archives, the binary container format used
by MDict-compatible dictionary applications.

This is not a writer: it only opens and queries already-built archives.

Layout, in file order: an XML-plus-Adler32 header describing the
dictionary's engine version, text encoding, and encryption flags; a
(possibly compressed, possibly scrambled) key-block directory and
payload giving every headword an offset into the concatenation of all
record-block payloads; a record-block directory giving each block's
file position and sizes. Every compressed block, whether key-block or
record-block, shares one envelope: a 4-byte tag (uncompressed, LZO, or
zlib) followed by the Adler-32 of the decompressed payload.

Version 1.2 archives use 32-bit directory fields throughout; version
2.0 and later use 64-bit fields and add a prelude checksum over the
key-block directory.

See internal/codec for the compression/scramble primitives and
dbcache for the optional on-disk index cache.

*/
package mdict
