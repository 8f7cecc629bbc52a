package mdict

import (
	"context"
	"os"

	"github.com/gomdict/mdict/dbcache"
	"github.com/gomdict/mdict/internal/codec"
	"github.com/gomdict/mdict/internal/keyindex"
	"github.com/pkg/errors"
)

// WordExists reports whether key is present in the MDX index, without
// fetching or decoding its payload.
func (d *Dictionary) WordExists(ctx context.Context, key string) (bool, error) {
	_, ok, err := d.resolveMdx(ctx, key)
	return ok, err
}

// LookupWord fetches and text-decodes the entry for key from the MDX
// archive. It returns ErrNotFound if key is absent.
func (d *Dictionary) LookupWord(ctx context.Context, key string) (string, error) {
	loc, ok, err := d.resolveMdx(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "word %q", key)
	}

	raw, err := d.fetch(ctx, d.mdx.file, loc, d.mdx.header.KeyIndexEncrypted)
	if err != nil {
		return "", errors.Wrapf(err, "fetch word %q", key)
	}

	text, err := decodeText(raw, d.mdx.header.Encoding)
	if err != nil {
		return "", errors.Wrapf(err, "decode word %q", key)
	}
	return text, nil
}

// LookupResource fetches the raw bytes for a normalised MDD resource
// path (e.g. "image/cat.png") from any companion MDD archive. The key is
// matched as given; back-slash paths are not rewritten. It returns
// ErrNotFound if the path is absent from every archive.
func (d *Dictionary) LookupResource(ctx context.Context, rawKey string) ([]byte, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	key := rawKey

	if d.cache != nil {
		fileIndex, loc, ok, err := d.cache.LookupMdd(ctx, key)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve resource %q", key)
		}
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "resource %q", key)
		}
		if fileIndex < 0 || fileIndex >= len(d.mdd) {
			return nil, errors.Wrapf(ErrCorruptIndex,
				"cache routes %q to mdd file %d, only %d present", key, fileIndex, len(d.mdd))
		}
		a := d.mdd[fileIndex]
		return d.fetch(ctx, a.file, loc, a.header.KeyIndexEncrypted)
	}

	for _, a := range d.mdd {
		e, ok := a.index.Lookup([]byte(key))
		if !ok {
			continue
		}
		loc := locatedFromArchive(a, e)
		return d.fetch(ctx, a.file, loc, a.header.KeyIndexEncrypted)
	}
	return nil, errors.Wrapf(ErrNotFound, "resource %q", key)
}

// KeywordIter enumerates every MDX headword as decoded text, in the
// dictionary's on-disk order (or, when served from the persistent
// cache, in keyword byte order — see DESIGN.md).
func (d *Dictionary) KeywordIter(ctx context.Context) ([]string, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	if d.cache != nil {
		return d.cache.KeywordIterMdx(ctx)
	}

	keys := d.mdx.index.Keys()
	out := make([]string, 0, len(keys))
	for i, k := range keys {
		if i%4096 == 0 {
			if err := checkCtx(ctx); err != nil {
				return nil, err
			}
		}
		out = append(out, string(k))
	}
	return out, nil
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// resolveMdx looks up key against either the persistent cache or the
// in-memory index, whichever is active.
func (d *Dictionary) resolveMdx(ctx context.Context, key string) (dbcache.Located, bool, error) {
	if err := checkCtx(ctx); err != nil {
		return dbcache.Located{}, false, err
	}

	if d.cache != nil {
		loc, ok, err := d.cache.LookupMdx(ctx, key)
		return loc, ok, errors.Wrap(err, "resolve mdx key")
	}

	e, ok := d.mdx.index.Lookup([]byte(key))
	if !ok {
		return dbcache.Located{}, false, nil
	}
	return locatedFromArchive(d.mdx, e), true, nil
}

func locatedFromArchive(a *archive, e keyindex.Entry) dbcache.Located {
	block := a.recordBlocks[e.Block]
	return dbcache.Located{
		BlockOffset:      block.FileOffset,
		BlockSize:        int64(block.CompressedSize),
		DecompressedSize: int64(block.DecompressedSize),
		RecordOffset:     int(e.Offset),
		RecordSize:       int(e.Len),
	}
}

// fetch reads a block's compressed bytes via ReadAt (never Seek+Read,
// so concurrent lookups never contend on a shared file position),
// optionally reverses the user-key scramble, decompresses the block,
// and slices out the requested record.
func (d *Dictionary) fetch(ctx context.Context, f *os.File, loc dbcache.Located, recordEncrypted bool) ([]byte, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	raw := make([]byte, loc.BlockSize)
	if _, err := f.ReadAt(raw, loc.BlockOffset); err != nil {
		return nil, errors.Wrap(err, "read block")
	}

	if recordEncrypted {
		if len(d.cfg.key) == 0 {
			return nil, ErrEncryptionRequired
		}
		raw = codec.FastDecrypt(raw, codec.UserKey(d.cfg.key))
	}

	decoded, err := codec.Decompress(raw, int(loc.DecompressedSize))
	if err != nil {
		return nil, wrapBlockErr(err, "decompress block")
	}

	end := loc.RecordOffset + loc.RecordSize
	if loc.RecordOffset < 0 || end > len(decoded) {
		return nil, errors.Wrap(ErrCorruptBlock, "record range outside decompressed block")
	}
	return decoded[loc.RecordOffset:end], nil
}
