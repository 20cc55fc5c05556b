package models

// KVRecord is the single database table: every entity is a JSON blob under a
// composite key built by the storage package. Kept deliberately flat so the
// blob layout is not a schema contract.
type KVRecord struct {
	Key   string `gorm:"primaryKey;size:512"`
	Value string `gorm:"type:text"`
}

func (KVRecord) TableName() string { return "kv_records" }
