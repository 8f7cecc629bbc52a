package codec

// RIPEMD-128 as specified by the ISO/IEC 10118-3 reference algorithm.
// Go's standard library and golang.org/x/crypto only ship RIPEMD-160;
// this follows the same hash.Hash-shaped block/compress/pad structure as
// golang.org/x/crypto/ripemd160 (a real dependency elsewhere in the
// retrieval pack, via perkeep-perkeep), specialised to the 128-bit
// variant's four-word state and double-pipeline compression function.
// There is no in-pack or attested ecosystem module implementing it, so
// this is the one hand-rolled cryptographic primitive in the codec kit
// (see DESIGN.md).

const (
	ripemd128BlockSize = 64
	ripemd128Size      = 16
)

type ripemd128Digest struct {
	s   [4]uint32
	x   [ripemd128BlockSize]byte
	nx  int
	len uint64
}

func newRipemd128() *ripemd128Digest {
	d := new(ripemd128Digest)
	d.reset()
	return d
}

func (d *ripemd128Digest) reset() {
	d.s[0] = 0x67452301
	d.s[1] = 0xefcdab89
	d.s[2] = 0x98badcfe
	d.s[3] = 0x10325476
	d.nx = 0
	d.len = 0
}

func (d *ripemd128Digest) write(p []byte) {
	d.len += uint64(len(p))
	if d.nx > 0 {
		n := copy(d.x[d.nx:], p)
		d.nx += n
		if d.nx == ripemd128BlockSize {
			ripemd128Block(d, d.x[:])
			d.nx = 0
		}
		p = p[n:]
	}
	for len(p) >= ripemd128BlockSize {
		ripemd128Block(d, p[:ripemd128BlockSize])
		p = p[ripemd128BlockSize:]
	}
	if len(p) > 0 {
		d.nx = copy(d.x[:], p)
	}
}

func (d *ripemd128Digest) checkSum() [ripemd128Size]byte {
	len := d.len

	var tmp [64]byte
	tmp[0] = 0x80
	if len%64 < 56 {
		d.write(tmp[0 : 56-len%64])
	} else {
		d.write(tmp[0 : 64+56-len%64])
	}

	len <<= 3
	for i := uint(0); i < 8; i++ {
		tmp[i] = byte(len >> (8 * i))
	}
	d.write(tmp[0:8])

	if d.nx != 0 {
		panic("d.nx != 0")
	}

	var digest [ripemd128Size]byte
	for i, s := range d.s {
		digest[i*4] = byte(s)
		digest[i*4+1] = byte(s >> 8)
		digest[i*4+2] = byte(s >> 16)
		digest[i*4+3] = byte(s >> 24)
	}
	return digest
}

// ripemd128Sum128 computes the RIPEMD-128 digest of src in one shot; the
// fast-decrypt key derivation (scramble.go) never streams input.
func ripemd128Sum128(src []byte) [ripemd128Size]byte {
	d := newRipemd128()
	d.write(src)
	return d.checkSum()
}

func rol(x uint32, n uint) uint32 { return (x << n) | (x >> (32 - n)) }

var rp128ZL = [64]uint{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
	7, 4, 13, 1, 10, 6, 15, 3, 12, 0, 9, 5, 2, 14, 11, 8,
	3, 10, 14, 4, 9, 15, 8, 1, 2, 7, 0, 6, 13, 11, 5, 12,
	1, 9, 11, 10, 0, 8, 12, 4, 13, 3, 7, 15, 14, 5, 6, 2,
}

var rp128ZR = [64]uint{
	5, 14, 7, 0, 9, 2, 11, 4, 13, 6, 15, 8, 1, 10, 3, 12,
	6, 11, 3, 7, 0, 13, 5, 10, 14, 15, 8, 12, 4, 9, 1, 2,
	15, 5, 1, 3, 7, 14, 6, 9, 11, 8, 12, 2, 10, 0, 4, 13,
	8, 6, 4, 1, 3, 11, 15, 0, 5, 12, 2, 13, 9, 7, 10, 14,
}

var rp128SL = [64]uint{
	11, 14, 15, 12, 5, 8, 7, 9, 11, 13, 14, 15, 6, 7, 9, 8,
	7, 6, 8, 13, 11, 9, 7, 15, 7, 12, 15, 9, 11, 7, 13, 12,
	11, 13, 6, 7, 14, 9, 13, 15, 14, 8, 13, 6, 5, 12, 7, 5,
	11, 12, 14, 15, 14, 15, 9, 8, 9, 14, 5, 6, 8, 6, 5, 12,
}

var rp128SR = [64]uint{
	8, 9, 9, 11, 13, 15, 15, 5, 7, 7, 8, 11, 14, 14, 12, 6,
	9, 13, 15, 7, 12, 8, 9, 11, 7, 7, 12, 7, 6, 15, 13, 11,
	9, 7, 15, 11, 8, 6, 6, 14, 12, 13, 5, 14, 13, 13, 7, 5,
	15, 5, 8, 11, 14, 14, 6, 14, 6, 9, 12, 9, 12, 5, 15, 8,
}

func f1(x, y, z uint32) uint32 { return x ^ y ^ z }
func f2(x, y, z uint32) uint32 { return (x & y) | (^x & z) }
func f3(x, y, z uint32) uint32 { return (x | ^y) ^ z }
func f4(x, y, z uint32) uint32 { return (x & z) | (y & ^z) }

// ripemd128Block runs the compression function over one 64-byte block,
// mirroring the two parallel line/right-line pipelines of RIPEMD-128.
func ripemd128Block(md *ripemd128Digest, p []byte) {
	var x [16]uint32
	j := 0
	for i := 0; i < 16; i++ {
		x[i] = uint32(p[j]) | uint32(p[j+1])<<8 | uint32(p[j+2])<<16 | uint32(p[j+3])<<24
		j += 4
	}

	a, b, c, d := md.s[0], md.s[1], md.s[2], md.s[3]
	aa, bb, cc, dd := md.s[0], md.s[1], md.s[2], md.s[3]

	for i := 0; i < 64; i++ {
		var f, fp uint32
		var k, kp uint32
		switch {
		case i < 16:
			f, k = f1(b, c, d), 0x00000000
			fp, kp = f4(bb, cc, dd), 0x50a28be6
		case i < 32:
			f, k = f2(b, c, d), 0x5a827999
			fp, kp = f3(bb, cc, dd), 0x5c4dd124
		case i < 48:
			f, k = f3(b, c, d), 0x6ed9eba1
			fp, kp = f2(bb, cc, dd), 0x6d703ef3
		default:
			f, k = f4(b, c, d), 0x8f1bbcdc
			fp, kp = f1(bb, cc, dd), 0x00000000
		}

		t := rol(a+f+x[rp128ZL[i]]+k, rp128SL[i])
		a, d, c, b = d, c, b, t

		tp := rol(aa+fp+x[rp128ZR[i]]+kp, rp128SR[i])
		aa, dd, cc, bb = dd, cc, bb, tp
	}

	t := md.s[1] + c + dd
	md.s[1] = md.s[2] + d + aa
	md.s[2] = md.s[3] + a + bb
	md.s[3] = md.s[0] + b + cc
	md.s[0] = t
}
