package postgres

import (
	"context"

	"dogenews/internal/subscriber"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriberStore persists the subscriber set in the subscriber_record table.
type SubscriberStore struct {
	client *PostgresClient
}

func NewSubscriberStore(client *PostgresClient) *SubscriberStore {
	return &SubscriberStore{client: client}
}

func (s *SubscriberStore) Load(ctx context.Context) (*subscriber.Set, error) {
	var records []SubscriberRecord
	err := s.client.DB.WithContext(ctx).
		Order("subscribed_at, chat_id").
		Find(&records).Error
	if err != nil {
		return nil, subscriber.Wrap("select subscribers", err)
	}

	set := subscriber.NewSet()
	for _, r := range records {
		set.Add(r.ChatID)
	}
	return set, nil
}

// Save replaces the table contents with set in one transaction. Rows of members
// that stay keep their original subscribed_at.
func (s *SubscriberStore) Save(ctx context.Context, set *subscriber.Set) error {
	ids := set.IDs()

	err := s.client.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("1 = 1")
		if len(ids) > 0 {
			del = tx.Where("chat_id NOT IN ?", ids)
		}
		if err := del.Delete(&SubscriberRecord{}).Error; err != nil {
			return err
		}

		if len(ids) == 0 {
			return nil
		}

		records := make([]SubscriberRecord, 0, len(ids))
		for _, id := range ids {
			records = append(records, SubscriberRecord{ChatID: id})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoNothing: true,
		}).Create(&records).Error
	})
	if err != nil {
		return subscriber.Wrap("replace subscribers", err)
	}
	return nil
}
