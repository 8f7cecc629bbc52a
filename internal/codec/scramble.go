package codec

import "encoding/binary"

// keyHeaderSalt is the constant appended to the key-block directory's
// length-prefix tail before RIPEMD128 keying.
var keyHeaderSalt = [4]byte{0x95, 0x36, 0x00, 0x00}

// FastDecryptKey derives the 16-byte scramble key for a key-block
// directory buffer whose declared length is bufLen: RIPEMD128 over the
// last 4 bytes of the length prefix concatenated with keyHeaderSalt.
func FastDecryptKey(bufLen uint32) [16]byte {
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], bufLen)

	src := make([]byte, 0, 8)
	src = append(src, lenBytes[:]...)
	src = append(src, keyHeaderSalt[:]...)
	return ripemd128Sum128(src)
}

// UserKey derives the 16-byte scramble key for user-key record
// decryption: a plain RIPEMD128 of the caller-supplied secret.
func UserKey(secret []byte) [16]byte {
	return ripemd128Sum128(secret)
}

// FastDecrypt reverses the byte-permutation scramble applied to
// key-header-encrypted directory buffers and user-key-encrypted record
// blocks:
//
//	out[i] = rotl4(in[i]) ^ (prev ^ (i & 0xff) ^ key[i mod 16])
//
// where prev is the raw (pre-decoded) input byte preceding position i,
// starting at 0. FastDecrypt operates in place conceptually but returns a
// new slice so callers can keep the ciphertext around for retries.
func FastDecrypt(in []byte, key [16]byte) []byte {
	out := make([]byte, len(in))
	var prev byte
	for i, b := range in {
		rotated := (b >> 4) | (b << 4)
		out[i] = rotated ^ (prev ^ byte(i&0xff) ^ key[i%16])
		prev = b
	}
	return out
}
