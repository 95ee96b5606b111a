package schema

import "time"

// Lock represents the locks table - a named lease held until ExpiryTime
type Lock struct {
	// Name identifies the guarded resource
	Name string `gorm:"column:name;primaryKey;type:text"`
	// Holder is the random token of the acquirer, required to release
	Holder string `gorm:"column:holder;not null;type:text"`
	// ExpiryTime is when the lease lapses without a release
	ExpiryTime time.Time `gorm:"column:expiry_time;not null;type:timestamptz"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Lock model
func (Lock) TableName() string {
	return "locks"
}
