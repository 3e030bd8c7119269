package store

// schema creates the relational model of spec §3: files, compile_args,
// includes, symbols, refs, with foreign keys on and cascading deletes so
// that removing a file row also removes its args, refs, and both
// endpoints of its includes edges (spec §5).
//
// Modeled directly on the original Python implementation's
// connect_to_db() (kept as the grounding source for the exact column
// set and constraints) and on the TaskWing codeintel/memory packages'
// CREATE TABLE IF NOT EXISTS + PRAGMA foreign_keys=ON idiom for a
// modernc.org/sqlite-backed store.
const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS files (
  id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
  path VARCHAR NOT NULL UNIQUE,
  working_dir VARCHAR NOT NULL,
  last_update TEXT NOT NULL,
  is_included BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS compile_args (
  id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
  file_id INTEGER NOT NULL,
  arg VARCHAR NOT NULL,
  FOREIGN KEY (file_id) REFERENCES files (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_compile_args_file_id ON compile_args (file_id);

CREATE TABLE IF NOT EXISTS includes (
  including_file_id INTEGER NOT NULL,
  included_file_id INTEGER NOT NULL,
  line INTEGER NOT NULL,
  column INTEGER NOT NULL,
  PRIMARY KEY (including_file_id, included_file_id, line, column),
  FOREIGN KEY (including_file_id) REFERENCES files (id) ON DELETE CASCADE,
  FOREIGN KEY (included_file_id) REFERENCES files (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_includes_included ON includes (included_file_id);

CREATE TABLE IF NOT EXISTS symbols (
  id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
  usr VARCHAR NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS refs (
  symbol_id INTEGER NOT NULL,
  file_id INTEGER NOT NULL,
  line INTEGER NOT NULL,
  column INTEGER NOT NULL,
  kind INTEGER NOT NULL,
  is_definition BOOLEAN NOT NULL,
  PRIMARY KEY (symbol_id, file_id, line, column),
  FOREIGN KEY (symbol_id) REFERENCES symbols (id) ON DELETE CASCADE,
  FOREIGN KEY (file_id) REFERENCES files (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_refs_file_id ON refs (file_id);
`
