// Package dbcache implements the persistent index cache: a small
// relational store, co-located with the MDX file as "name.db", that
// mirrors the in-memory index so subsequent opens can skip key-block
// parsing entirely. It uses modernc.org/sqlite, the
// pure-Go SQLite driver already present in perkeep-perkeep's go.mod
// (pkg/index/sqlite, pkg/index/sqlindex), so the core never needs cgo.
package dbcache

import (
	"context"
	"database/sql"
	"os"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// BlockInfo is one row of mdx_block/mdd_block: a record-block's file
// offset and compressed size.
type BlockInfo struct {
	Offset int64
	Size   int64
}

// EntryInfo is one row of mdx_index/mdd_index: a keyword's location
// within its record-block.
type EntryInfo struct {
	Keyword      string
	BlockIndex   int
	RecordOffset int
	RecordSize   int
}

// MddArchive groups one companion MDD's blocks and entries for Build.
type MddArchive struct {
	Blocks  []BlockInfo
	Entries []EntryInfo
}

// BuildInput is everything Build needs to populate a fresh cache; it is
// produced by the in-memory index builder (mdict.go) immediately after
// a from-scratch parse.
type BuildInput struct {
	MdxBlocks  []BlockInfo
	MdxEntries []EntryInfo
	Mdd        []MddArchive
}

// Cache is a read-only handle on an opened, up-to-date "name.db" file.
type Cache struct {
	db *sql.DB
}

// Open opens path read-only and reports whether its meta.version matches
// the current library Version. A missing file, a version mismatch, or
// any read failure is reported as (nil, false, nil) so the caller
// rebuilds rather than treating staleness as fatal.
func Open(ctx context.Context, path string) (*Cache, bool, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, false, nil
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, false, errors.Wrap(err, "open cache")
	}

	var version string
	row := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version'`)
	if err := row.Scan(&version); err != nil {
		db.Close()
		return nil, false, nil
	}
	if version != Version {
		db.Close()
		return nil, false, nil
	}

	return &Cache{db: db}, true, nil
}

// Build writes a fresh cache to path, replacing any existing file, and
// returns it opened read-only. Writes for each table are batched inside
// one transaction, bounding worst-case write amplification for large
// dictionaries.
func Build(ctx context.Context, path string, in BuildInput) (*Cache, error) {
	_ = os.Remove(path) // stale or partial cache; rebuilding from scratch

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, errors.Wrap(err, "create cache")
	}

	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := writeBlocks(ctx, db, "mdx_block", mdxBlockRows(in.MdxBlocks)); err != nil {
		db.Close()
		return nil, err
	}
	if err := writeEntries(ctx, db, mdxIndexRows(in.MdxEntries)); err != nil {
		db.Close()
		return nil, err
	}
	for fileIndex, mdd := range in.Mdd {
		if err := writeMddBlocks(ctx, db, fileIndex, mdd.Blocks); err != nil {
			db.Close()
			return nil, err
		}
		if err := writeMddEntries(ctx, db, fileIndex, mdd.Entries); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := writeMeta(ctx, db, "version", Version); err != nil {
		db.Close()
		return nil, err
	}
	db.Close()

	return reopenReadOnly(ctx, path)
}

// reopenReadOnly re-opens a just-built cache read-only without the
// version check Open performs (the caller just wrote it, so it is
// trivially current).
func reopenReadOnly(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, errors.Wrap(err, "reopen cache")
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin schema tx")
	}
	for _, stmt := range createTableStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "create schema")
		}
	}
	return tx.Commit()
}

func writeMeta(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, key, value)
	return errors.Wrap(err, "write meta")
}

func mdxBlockRows(blocks []BlockInfo) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for i, b := range blocks {
			if _, err := tx.Exec(`INSERT INTO mdx_block (block_index, block_offset, block_size) VALUES (?, ?, ?)`,
				i, b.Offset, b.Size); err != nil {
				return err
			}
		}
		return nil
	}
}

func writeBlocks(ctx context.Context, db *sql.DB, table string, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin %s tx", table)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "write %s", table)
	}
	return tx.Commit()
}

func mdxIndexRows(entries []EntryInfo) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.Exec(`INSERT INTO mdx_index (keyword, block_index, record_offset, record_size) VALUES (?, ?, ?, ?)`,
				e.Keyword, e.BlockIndex, e.RecordOffset, e.RecordSize); err != nil {
				return err
			}
		}
		return nil
	}
}

func writeEntries(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin mdx_index tx")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "write mdx_index")
	}
	return tx.Commit()
}

func writeMddBlocks(ctx context.Context, db *sql.DB, fileIndex int, blocks []BlockInfo) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin mdd_block tx")
	}
	for i, b := range blocks {
		if _, err := tx.Exec(`INSERT INTO mdd_block (file_index, block_index, block_offset, block_size) VALUES (?, ?, ?, ?)`,
			fileIndex, i, b.Offset, b.Size); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "write mdd_block")
		}
	}
	return tx.Commit()
}

func writeMddEntries(ctx context.Context, db *sql.DB, fileIndex int, entries []EntryInfo) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin mdd_index tx")
	}
	for _, e := range entries {
		if _, err := tx.Exec(`INSERT INTO mdd_index (keyword, file_index, block_index, record_offset, record_size) VALUES (?, ?, ?, ?, ?)`,
			e.Keyword, fileIndex, e.BlockIndex, e.RecordOffset, e.RecordSize); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "write mdd_index")
		}
	}
	return tx.Commit()
}

// Located is what a cache-backed lookup needs to fetch and slice a
// record: the owning block's file position and sizes, plus the
// intra-block byte range.
type Located struct {
	BlockOffset      int64
	BlockSize        int64 // compressed size of the owning block
	DecompressedSize int64 // derived: max(record_offset+record_size) across the block
	RecordOffset     int
	RecordSize       int
}

// LookupMdx resolves a headword via mdx_index joined with mdx_block.
func (c *Cache) LookupMdx(ctx context.Context, keyword string) (Located, bool, error) {
	const q = `
		SELECT b.block_offset, b.block_size, i.record_offset, i.record_size, i.block_index
		FROM mdx_index i JOIN mdx_block b ON b.block_index = i.block_index
		WHERE i.keyword = ?`
	var loc Located
	var blockIndex int
	err := c.db.QueryRowContext(ctx, q, keyword).Scan(&loc.BlockOffset, &loc.BlockSize, &loc.RecordOffset, &loc.RecordSize, &blockIndex)
	if err == sql.ErrNoRows {
		return Located{}, false, nil
	}
	if err != nil {
		return Located{}, false, errors.Wrap(err, "lookup mdx_index")
	}

	decompSize, err := c.mdxBlockDecompressedSize(ctx, blockIndex)
	if err != nil {
		return Located{}, false, err
	}
	loc.DecompressedSize = decompSize
	return loc, true, nil
}

// LookupMdd resolves a normalised resource path via mdd_index joined
// with mdd_block, scoped to fileIndex (mdd rows are keyed by
// (file_index, block_index), since one cache can serve several
// companion MDD archives).
func (c *Cache) LookupMdd(ctx context.Context, keyword string) (fileIndex int, loc Located, ok bool, err error) {
	const q = `
		SELECT b.file_index, b.block_offset, b.block_size, i.record_offset, i.record_size, i.block_index
		FROM mdd_index i JOIN mdd_block b ON b.file_index = i.file_index AND b.block_index = i.block_index
		WHERE i.keyword = ?`
	var blockIndex int
	scanErr := c.db.QueryRowContext(ctx, q, keyword).Scan(&fileIndex, &loc.BlockOffset, &loc.BlockSize, &loc.RecordOffset, &loc.RecordSize, &blockIndex)
	if scanErr == sql.ErrNoRows {
		return 0, Located{}, false, nil
	}
	if scanErr != nil {
		return 0, Located{}, false, errors.Wrap(scanErr, "lookup mdd_index")
	}

	decompSize, err := c.mddBlockDecompressedSize(ctx, fileIndex, blockIndex)
	if err != nil {
		return 0, Located{}, false, err
	}
	loc.DecompressedSize = decompSize
	return fileIndex, loc, true, nil
}

func (c *Cache) mdxBlockDecompressedSize(ctx context.Context, blockIndex int) (int64, error) {
	const q = `SELECT MAX(record_offset + record_size) FROM mdx_index WHERE block_index = ?`
	var n int64
	if err := c.db.QueryRowContext(ctx, q, blockIndex).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "derive mdx block decompressed size")
	}
	return n, nil
}

func (c *Cache) mddBlockDecompressedSize(ctx context.Context, fileIndex, blockIndex int) (int64, error) {
	const q = `SELECT MAX(record_offset + record_size) FROM mdd_index WHERE file_index = ? AND block_index = ?`
	var n int64
	if err := c.db.QueryRowContext(ctx, q, fileIndex, blockIndex).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "derive mdd block decompressed size")
	}
	return n, nil
}

// CountMdx reports how many headwords the cache holds, restoring the
// header's KeyCount on a cache-served open (the key-block directory,
// which normally supplies it, is never parsed on that path).
func (c *Cache) CountMdx(ctx context.Context) (uint64, error) {
	var n uint64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mdx_index`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count mdx_index")
	}
	return n, nil
}

// KeywordIterMdx enumerates every mdx_index keyword in lexicographic
// (byte) order. This mirrors the reference mdict_rs implementation's
// PatriciaMap iteration, which likewise yields byte order rather than
// the original file order once an index is rebuilt from a serialized
// store (see DESIGN.md).
func (c *Cache) KeywordIterMdx(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT keyword FROM mdx_index ORDER BY keyword`)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate mdx_index")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, "scan keyword")
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
