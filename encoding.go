package mdict

import (
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// decodeText converts raw record bytes to a Go string per the header's
// declared Encoding. A trailing NUL, present for every 1-byte encoding
// and doubled for utf-16, is stripped first.
func decodeText(raw []byte, encodingName string) (string, error) {
	raw = trimTrailingNUL(raw, encodingName)

	switch strings.ToLower(encodingName) {
	case "utf-8", "":
		return string(raw), nil
	case "utf-16":
		return utf16LEBytesToString(raw)
	case "gbk":
		out, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
		if err != nil {
			return "", errors.Wrap(err, "gbk decode")
		}
		return string(out), nil
	case "big5":
		out, err := traditionalchinese.Big5.NewDecoder().Bytes(raw)
		if err != nil {
			return "", errors.Wrap(err, "big5 decode")
		}
		return string(out), nil
	case "latin1":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", errors.Wrap(err, "latin1 decode")
		}
		return string(out), nil
	default:
		return "", errors.Wrapf(ErrUnsupportedEncoding, "encoding %q", encodingName)
	}
}

func trimTrailingNUL(raw []byte, encodingName string) []byte {
	if strings.EqualFold(encodingName, "utf-16") {
		if len(raw) >= 2 && raw[len(raw)-1] == 0 && raw[len(raw)-2] == 0 {
			return raw[:len(raw)-2]
		}
		return raw
	}
	if len(raw) >= 1 && raw[len(raw)-1] == 0 {
		return raw[:len(raw)-1]
	}
	return raw
}

func utf16LEBytesToString(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", errors.New("odd-length utf-16 payload")
	}
	u16 := make([]uint16, len(b)/2)
	for i := range u16 {
		u16[i] = uint16(b[i*2]) | uint16(b[i*2+1])<<8
	}
	return string(utf16.Decode(u16)), nil
}

// keywordTerminatorWidth reports how many trailing NUL bytes terminate a
// keyword string in the key-block payload: 1 for single-byte encodings,
// 2 for utf-16.
func keywordTerminatorWidth(encodingName string) int {
	if strings.EqualFold(encodingName, "utf-16") {
		return 2
	}
	return 1
}
