package postgres

import "time"

// SubscriberRecord is one chat subscribed to broadcasts.
type SubscriberRecord struct {
	ChatID int64 `gorm:"primaryKey;autoIncrement:false"`

	SubscribedAt time.Time `gorm:"autoCreateTime;index:idx_subscriber_subscribed_at"`
}

// TableName overrides the default table name for GORM.
func (SubscriberRecord) TableName() string {
	return "subscriber_record"
}
