// Package mdict reads MDX headword dictionaries and their companion MDD
// resource archives: binary container formats consisting of a layered
// XML+checksum header, a compressed/obfuscated keyword index, and
// compressed record payloads fetched on demand.
package mdict

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomdict/mdict/dbcache"
	"github.com/gomdict/mdict/internal/keyindex"
	"github.com/gomdict/mdict/internal/options"
	"github.com/gomdict/mdict/internal/sidecar"
	"github.com/pkg/errors"
)

// archive is one opened MDX or MDD file plus the state needed to
// resolve a lookup into file bytes.
type archive struct {
	path         string
	file         *os.File
	header       Header
	index        *keyindex.Index // nil when served entirely from cache
	recordBlocks []recordBlock   // nil when served entirely from cache
}

// Dictionary is an opened MDX headword archive together with any
// companion MDD resource archives discovered beside it.
type Dictionary struct {
	cfg *openConfig

	mdx *archive
	mdd []*archive

	cache *dbcache.Cache
}

// Open parses path (which must have a ".mdx" extension) and any
// companion ".mdd"/".N.mdd" resource archives discovered beside it.
func Open(path string, opts ...Option) (*Dictionary, error) {
	cfg := defaultOpenConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if !strings.EqualFold(filepath.Ext(path), ".mdx") {
		return nil, errors.Wrapf(ErrInvalidInput, "path %q: expected .mdx extension", path)
	}

	d := &Dictionary{cfg: cfg}

	cachePath := cfg.cacheDir
	if cachePath == "" {
		cachePath = sidecar.CachePath(path)
	} else {
		cachePath = filepath.Join(cachePath, filepath.Base(sidecar.CachePath(path)))
	}

	if cfg.useCache {
		cache, ok, err := dbcache.Open(cfg.ctx, cachePath)
		if err != nil {
			return nil, errors.Wrap(err, "open persistent cache")
		}
		if ok {
			mdx, err := openArchiveHeaderOnly(path, ModeMdx)
			if err != nil {
				cache.Close()
				return nil, err
			}
			d.mdx = mdx
			d.cache = cache
			n, err := cache.CountMdx(cfg.ctx)
			if err != nil {
				d.Close()
				return nil, errors.Wrap(err, "count cached keywords")
			}
			d.mdx.header.KeyCount = n
			d.mdx.header.RecordCount = n
			if err := d.openMddHeadersOnly(); err != nil {
				d.Close()
				return nil, err
			}
			return d, nil
		}
	}

	mdx, err := openArchiveFull(path, ModeMdx)
	if err != nil {
		return nil, err
	}
	d.mdx = mdx

	for _, mddPath := range sidecar.Discover(path) {
		mddArc, err := openArchiveFull(mddPath, ModeMdd)
		if err != nil {
			d.Close()
			return nil, errors.Wrapf(err, "open companion mdd %q", mddPath)
		}
		d.mdd = append(d.mdd, mddArc)
	}

	if mdx.index.Len() != int(mdx.header.KeyCount) {
		d.Close()
		return nil, errors.Wrapf(ErrCorruptIndex,
			"mdx key count %d != header KeyCount %d", mdx.index.Len(), mdx.header.KeyCount)
	}

	if cfg.useCache {
		cache, err := dbcache.Build(cfg.ctx, cachePath, d.buildCacheInput())
		if err != nil {
			d.Close()
			return nil, errors.Wrap(err, "build persistent cache")
		}
		d.cache = cache
	}

	return d, nil
}

// Close releases the file handles held by the Dictionary and its
// persistent cache connection, if any.
func (d *Dictionary) Close() error {
	var firstErr error
	if d.cache != nil {
		if err := d.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.mdx != nil && d.mdx.file != nil {
		if err := d.mdx.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, a := range d.mdd {
		if a.file != nil {
			if err := a.file.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Header returns the parsed MDX header.
func (d *Dictionary) Header() Header { return d.mdx.header }

func (d *Dictionary) openMddHeadersOnly() error {
	for _, mddPath := range sidecar.Discover(d.mdx.path) {
		arc, err := openArchiveHeaderOnly(mddPath, ModeMdd)
		if err != nil {
			return errors.Wrapf(err, "open companion mdd %q", mddPath)
		}
		d.mdd = append(d.mdd, arc)
	}
	return nil
}

// openArchiveHeaderOnly opens path and parses only its header, for use
// when a valid persistent cache will serve all lookups.
func openArchiveHeaderOnly(path string, mode Mode) (*archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	h, err := parseHeader(newCursor(f), mode)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "rewind file")
	}
	return &archive{path: path, file: f, header: h}, nil
}

// openArchiveFull opens path, parses its header and both directories,
// and builds its in-memory keyword index. MDD keys are normalised
// (back-slash-to-slash rewrite) before indexing.
func openArchiveFull(path string, mode Mode) (*archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}

	c := newCursor(f)
	h, err := parseHeader(c, mode)
	if err != nil {
		f.Close()
		return nil, err
	}

	dirEntries, keyCount, err := parseKeyBlockDirectory(c, h)
	if err != nil {
		f.Close()
		return nil, err
	}
	rawKeys, err := parseKeyBlockPayloads(c, h, dirEntries)
	if err != nil {
		f.Close()
		return nil, err
	}
	if uint64(len(rawKeys)) != keyCount {
		f.Close()
		return nil, errors.Wrapf(ErrCorruptIndex,
			"key-block payload entry count %d != directory-declared %d", len(rawKeys), keyCount)
	}
	h.KeyCount = keyCount
	h.RecordCount = keyCount

	recBlocks, err := parseRecordBlockDirectory(c, h.version, h.KeyCount)
	if err != nil {
		f.Close()
		return nil, err
	}
	assignFileOffsets(recBlocks, c.Pos())

	for i := range rawKeys {
		text, derr := decodeText(rawKeys[i].Key, h.Encoding)
		if derr != nil {
			// Keep the raw bytes as a fallback key so the entry is still
			// reachable by exact match even when its text can't be decoded.
			continue
		}
		if mode == ModeMdd {
			text = string(sidecar.NormalizeKey([]byte(text)))
		}
		rawKeys[i].Key = []byte(text)
	}

	idx, err := buildIndex(rawKeys, recBlocks)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &archive{path: path, file: f, header: h, index: idx, recordBlocks: recBlocks}, nil
}

// buildIndex resolves each key's global decompressed offset into a
// (block, intra-block offset, length) triple and inserts it, in file
// order, into a fresh keyindex.Index.
func buildIndex(rawKeys []rawKeyEntry, recBlocks []recordBlock) (*keyindex.Index, error) {
	b := keyindex.NewBuilder()

	for i, rk := range rawKeys {
		blockIdx, residue, ok := locate(recBlocks, rk.GlobalOffset)
		if !ok {
			return nil, errors.Wrapf(ErrCorruptIndex, "key %q: offset %d outside record blocks", rk.Key, rk.GlobalOffset)
		}

		block := recBlocks[blockIdx]
		var length uint64
		if i+1 < len(rawKeys) {
			nextBlockIdx, nextResidue, nextOK := locate(recBlocks, rawKeys[i+1].GlobalOffset)
			if nextOK && nextBlockIdx == blockIdx {
				length = nextResidue - residue
			} else {
				length = block.DecompressedSize - residue
			}
		} else {
			length = block.DecompressedSize - residue
		}

		if err := b.Add(rk.Key, keyindex.Entry{
			Block:  uint32(blockIdx),
			Offset: uint32(residue),
			Len:    uint32(length),
		}); err != nil {
			return nil, errors.Wrapf(ErrCorruptIndex, "insert key %q: %s", rk.Key, err)
		}
	}

	return b.Build(), nil
}

func (d *Dictionary) buildCacheInput() dbcache.BuildInput {
	in := dbcache.BuildInput{
		MdxBlocks:  blockInfos(d.mdx.recordBlocks),
		MdxEntries: entryInfos(d.mdx.index),
	}
	for _, a := range d.mdd {
		in.Mdd = append(in.Mdd, dbcache.MddArchive{
			Blocks:  blockInfos(a.recordBlocks),
			Entries: entryInfos(a.index),
		})
	}
	return in
}

func blockInfos(blocks []recordBlock) []dbcache.BlockInfo {
	out := make([]dbcache.BlockInfo, len(blocks))
	for i, b := range blocks {
		out[i] = dbcache.BlockInfo{Offset: b.FileOffset, Size: int64(b.CompressedSize)}
	}
	return out
}

func entryInfos(idx *keyindex.Index) []dbcache.EntryInfo {
	keys := idx.Keys()
	out := make([]dbcache.EntryInfo, len(keys))
	for i, k := range keys {
		e, _ := idx.Lookup(k)
		out[i] = dbcache.EntryInfo{
			Keyword:      string(k),
			BlockIndex:   int(e.Block),
			RecordOffset: int(e.Offset),
			RecordSize:   int(e.Len),
		}
	}
	return out
}
