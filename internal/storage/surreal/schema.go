package surreal

// EntryTable is the table holding finalized diary entries.
const EntryTable = "diary_entry"

// SchemaSQL initializes the diary table. Turns are left schemaless.
const SchemaSQL = `
    DEFINE TABLE IF NOT EXISTS diary_entry SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS date ON diary_entry TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON diary_entry TYPE string;
    DEFINE FIELD IF NOT EXISTS emotion ON diary_entry TYPE string;
    DEFINE FIELD IF NOT EXISTS image_ref ON diary_entry TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON diary_entry TYPE datetime;
    DEFINE INDEX IF NOT EXISTS diary_entry_date ON diary_entry FIELDS date;
`
