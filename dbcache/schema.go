package dbcache

// Version is stamped into meta.value under key "version" at build time
// and compared against on open to decide whether the cache is stale.
// Bump it whenever the on-disk layout below changes incompatibly.
const Version = "1"

// createTableStatements defines the meta table plus the four
// block/index tables, grounded on
// perkeep-perkeep's pkg/index/sqlite
// (dbschema.go's meta/rows table pair) and pkg/index/sqlindex's
// batched-transaction write style.
var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS mdx_block (
		block_index  INTEGER PRIMARY KEY,
		block_offset INTEGER NOT NULL,
		block_size   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS mdx_index (
		keyword       TEXT NOT NULL,
		block_index   INTEGER NOT NULL,
		record_offset INTEGER NOT NULL,
		record_size   INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS mdx_index_keyword ON mdx_index (keyword)`,
	`CREATE TABLE IF NOT EXISTS mdd_block (
		file_index   INTEGER NOT NULL,
		block_index  INTEGER NOT NULL,
		block_offset INTEGER NOT NULL,
		block_size   INTEGER NOT NULL,
		PRIMARY KEY (file_index, block_index)
	)`,
	`CREATE TABLE IF NOT EXISTS mdd_index (
		keyword       TEXT NOT NULL,
		file_index    INTEGER NOT NULL,
		block_index   INTEGER NOT NULL,
		record_offset INTEGER NOT NULL,
		record_size   INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS mdd_index_keyword ON mdd_index (keyword)`,
}
