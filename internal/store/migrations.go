package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS addressbooks (
	id          TEXT PRIMARY KEY,
	account     TEXT NOT NULL,
	url         TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	sync_token  TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS contacts (
	abook_id     TEXT NOT NULL REFERENCES addressbooks(id) ON DELETE CASCADE,
	uri          TEXT NOT NULL,
	etag         TEXT NOT NULL DEFAULT '',
	uid          TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	kind         TEXT NOT NULL DEFAULT 'individual',
	record       TEXT NOT NULL DEFAULT '{}',
	vcard        TEXT NOT NULL DEFAULT '',
	fetched_at   DATETIME NOT NULL,
	PRIMARY KEY (abook_id, uri)
);

CREATE TABLE IF NOT EXISTS custom_labels (
	abook_id   TEXT NOT NULL,
	field      TEXT NOT NULL,
	label      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (abook_id, field, label)
);

CREATE INDEX IF NOT EXISTS idx_contacts_uid ON contacts(uid);
CREATE INDEX IF NOT EXISTS idx_contacts_display_name ON contacts(display_name);
CREATE INDEX IF NOT EXISTS idx_custom_labels_abook ON custom_labels(abook_id, field);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_contacts_kind ON contacts(abook_id, kind);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
