package mdict

import (
	"encoding/binary"
	"hash/adler32"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// Mode tags whether a dictionary's payloads are text (MDX) or opaque
// bytes (MDD).
type Mode int

const (
	ModeMdx Mode = iota
	ModeMdd
)

// Header is the dictionary's configuration, produced once per file.
type Header struct {
	Mode Mode

	EngineVersion float64
	Encoding      string // one of utf-8, utf-16, gbk, big5, latin1

	KeyHeaderEncrypted bool
	KeyIndexEncrypted  bool

	RecordCount uint64
	KeyCount    uint64

	Title        string
	Description  string
	CreationDate string
	RegisteredBy string
	RegCode      string

	version version
}

// parseHeader reads the fixed prelude and XML attributes, leaving c
// positioned at the start of the key-block directory.
func parseHeader(c *cursor, mode Mode) (Header, error) {
	xmlLen := c.u32()
	xmlBytes := c.bytes(uint64(xmlLen))
	checksum := c.u32le()
	if c.err != nil {
		return Header{}, errors.Wrap(ErrCorruptHeader, "read xml prelude: "+c.err.Error())
	}
	if got := adler32.Checksum(xmlBytes); got != checksum {
		return Header{}, errors.Wrap(ErrCorruptHeader, "xml adler32 mismatch")
	}

	text, err := utf16leToString(xmlBytes)
	if err != nil {
		return Header{}, errors.Wrap(ErrCorruptHeader, "decode xml utf-16: "+err.Error())
	}

	attrs := scanAttributes(text)

	h := Header{
		Mode:         mode,
		Title:        unescapeXML(attrs["Title"]),
		Description:  unescapeXML(attrs["Description"]),
		CreationDate: unescapeXML(attrs["CreationDate"]),
		RegisteredBy: unescapeXML(attrs["RegisterBy"]),
		RegCode:      unescapeXML(attrs["RegCode"]),
	}

	if v, ok := attrs["GeneratedByEngineVersion"]; ok && v != "" {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return Header{}, errors.Wrap(ErrCorruptHeader, "parse engine version: "+perr.Error())
		}
		h.EngineVersion = f
	} else {
		h.EngineVersion = 1.2
	}
	if h.EngineVersion >= 3.0 {
		// 3.0 archives use an incompatible framing this library does not
		// speak.
		return Header{}, errors.Wrapf(ErrUnsupportedVersion, "engine version %v", h.EngineVersion)
	}
	h.version = versionFromEngine(h.EngineVersion)

	enc := strings.ToLower(strings.TrimSpace(attrs["Encoding"]))
	switch enc {
	case "":
		if mode == ModeMdd {
			h.Encoding = "utf-16"
		} else {
			h.Encoding = "utf-8"
		}
	case "utf-8", "utf-16", "gbk", "big5", "latin1":
		h.Encoding = enc
	default:
		return Header{}, errors.Wrapf(ErrUnsupportedEncoding, "encoding %q", attrs["Encoding"])
	}
	if mode == ModeMdd {
		h.Encoding = "utf-16"
	}

	if v, ok := attrs["Encrypted"]; ok && v != "" {
		flags, perr := strconv.Atoi(strings.TrimSpace(v))
		if perr != nil {
			return Header{}, errors.Wrap(ErrCorruptHeader, "parse encrypted flags: "+perr.Error())
		}
		h.KeyHeaderEncrypted = flags&0x1 != 0
		h.KeyIndexEncrypted = flags&0x2 != 0
	}

	return h, nil
}

// utf16leToString decodes a UTF-16LE byte slice (the XML header is always
// UTF-16LE regardless of the dictionary's declared content Encoding).
func utf16leToString(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", errors.New("odd-length utf-16 buffer")
	}
	u16 := make([]uint16, len(b)/2)
	for i := range u16 {
		u16[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(u16)), nil
}

// scanAttributes extracts name="value" pairs from the single
// "<Dictionary ... />" element. This is an attribute scan, not a general
// XML parser — the header element is simple enough not to need one.
func scanAttributes(xml string) map[string]string {
	attrs := make(map[string]string)
	i := 0
	n := len(xml)
	for i < n {
		for i < n && xml[i] != ' ' && xml[i] != '\t' && xml[i] != '\n' && xml[i] != '\r' {
			i++
		}
		for i < n && (xml[i] == ' ' || xml[i] == '\t' || xml[i] == '\n' || xml[i] == '\r') {
			i++
		}
		nameStart := i
		for i < n && xml[i] != '=' && xml[i] != '>' {
			i++
		}
		if i >= n || xml[i] != '=' {
			break
		}
		name := strings.TrimSpace(xml[nameStart:i])
		i++ // skip '='
		if i >= n || xml[i] != '"' {
			continue
		}
		i++
		valStart := i
		for i < n && xml[i] != '"' {
			i++
		}
		if i >= n {
			break
		}
		value := xml[valStart:i]
		i++ // skip closing quote
		if name != "" {
			attrs[name] = value
		}
	}
	return attrs
}

var xmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
)

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}
