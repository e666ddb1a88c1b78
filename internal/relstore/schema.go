package relstore

// schema creates every table the relational store needs. Tables are
// created with IF NOT EXISTS so Open is idempotent across restarts of an
// existing project database.
const schema = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	dir TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL,
	mtime INTEGER NOT NULL,
	content_hash TEXT NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	indexed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_dir ON files(dir);

CREATE TABLE IF NOT EXISTS symbols (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	line_start INTEGER NOT NULL,
	line_end INTEGER NOT NULL,
	signature TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
	symbol_id UNINDEXED,
	name,
	signature,
	tokenize='unicode61'
);

CREATE TABLE IF NOT EXISTS symbol_references (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	source_symbol_id INTEGER REFERENCES symbols(id) ON DELETE CASCADE,
	source_symbol_name TEXT NOT NULL DEFAULT '',
	target_name TEXT NOT NULL,
	target_symbol_id INTEGER REFERENCES symbols(id) ON DELETE SET NULL,
	line INTEGER NOT NULL,
	kind TEXT NOT NULL,
	resolved INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_refs_file ON symbol_references(file_id);
CREATE INDEX IF NOT EXISTS idx_refs_target_name ON symbol_references(target_name);
CREATE INDEX IF NOT EXISTS idx_refs_unresolved ON symbol_references(resolved) WHERE resolved = 0;

CREATE TABLE IF NOT EXISTS dependencies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	module_path TEXT NOT NULL,
	relative INTEGER NOT NULL DEFAULT 0,
	line INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deps_file ON dependencies(file_id);
CREATE INDEX IF NOT EXISTS idx_deps_module ON dependencies(module_path);

CREATE TABLE IF NOT EXISTS dependency_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dependency_id INTEGER NOT NULL REFERENCES dependencies(id) ON DELETE CASCADE,
	item TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	pattern TEXT NOT NULL,
	severity TEXT NOT NULL DEFAULT 'warn',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS golden_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_id INTEGER REFERENCES rules(id) ON DELETE CASCADE,
	chunk_id TEXT NOT NULL,
	label TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS active_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER REFERENCES files(id) ON DELETE CASCADE,
	code TEXT NOT NULL,
	message TEXT NOT NULL,
	line INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS config_keys (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS vue_trees (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	script_line_offset INTEGER NOT NULL DEFAULT 0,
	template_line_offset INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS api_endpoints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	handler_symbol TEXT NOT NULL DEFAULT '',
	line INTEGER NOT NULL,
	framework TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_endpoints_path ON api_endpoints(path);

CREATE TABLE IF NOT EXISTS frontend_api_calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	line INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_frontend_calls_path ON frontend_api_calls(path);

CREATE TABLE IF NOT EXISTS entity_links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	from_kind TEXT NOT NULL,
	from_ref TEXT NOT NULL,
	to_kind TEXT NOT NULL,
	to_ref TEXT NOT NULL,
	confidence REAL NOT NULL,
	link_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS type_fingerprints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	language TEXT NOT NULL,
	field_count INTEGER NOT NULL,
	normalized_fields TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fingerprints_name ON type_fingerprints(name);

CREATE TABLE IF NOT EXISTS cross_stack_links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	left_fingerprint_id INTEGER NOT NULL REFERENCES type_fingerprints(id) ON DELETE CASCADE,
	right_fingerprint_id INTEGER NOT NULL REFERENCES type_fingerprints(id) ON DELETE CASCADE,
	similarity REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS subprojects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	root_path TEXT NOT NULL UNIQUE,
	domain TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_summaries (
	file_id INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
	summary TEXT NOT NULL,
	model TEXT NOT NULL,
	generated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS summary_queue (
	file_id INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
	enqueued_at INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	attempts INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chunk_cache (
	chunk_id TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	model_version TEXT NOT NULL,
	embedding BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	last_used_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunk_cache_hash ON chunk_cache(content_hash, model_version);

CREATE TABLE IF NOT EXISTS index_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
`
