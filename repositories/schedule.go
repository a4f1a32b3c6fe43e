//go:generate go run go.uber.org/mock/mockgen -source=schedule.go -destination=../mocks/mock_schedule_repository.go -package=mocks
package repositories

import (
	"community-pulse/domain"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	currentScheduleKey    = "schedule:current"
	scheduleHistoryPrefix = "schedule:history:"
)

type IScheduleRepository interface {
	Save(schedule domain.DailySchedule, at time.Time) error
	Current() (domain.DailySchedule, bool, error)
	History(limit int) ([]ScheduleRecord, error)
}

type ScheduleRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewScheduleRepository(db *badger.DB, log *slog.Logger) ScheduleRepository {
	return ScheduleRepository{db: db, log: log}
}

// ScheduleRecord is a schedule as it was published at SavedAt.
type ScheduleRecord struct {
	Schedule domain.DailySchedule `json:"schedule"`
	SavedAt  time.Time            `json:"savedAt"`
}

// Save replaces the current schedule and appends it to the history in one transaction.
// History keys are "schedule:history:{timestamp_padded}" so a reverse prefix scan
// yields the newest publication first.
func (s ScheduleRepository) Save(schedule domain.DailySchedule, at time.Time) error {
	bytes, err := json.Marshal(ScheduleRecord{Schedule: schedule, SavedAt: at.UTC()})
	if err != nil {
		return err
	}
	historyKey := fmt.Sprintf("%s%019d", scheduleHistoryPrefix, at.UnixNano())
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(currentScheduleKey), bytes); err != nil {
			return err
		}
		return txn.Set([]byte(historyKey), bytes)
	})
}

// Current returns found=false when nothing was ever published.
func (s ScheduleRepository) Current() (domain.DailySchedule, bool, error) {
	var record ScheduleRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(currentScheduleKey))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &record)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.DailySchedule{}, false, nil
	}
	if err != nil {
		return domain.DailySchedule{}, false, err
	}
	return record.Schedule, true, nil
}

// History lists past publications, newest first. A limit <= 0 returns everything.
func (s ScheduleRepository) History(limit int) ([]ScheduleRecord, error) {
	var records []ScheduleRecord
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(scheduleHistoryPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts at the greatest key <= seek
		for it.Seek(append(prefix, []byte("9999999999999999999")...)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) == limit {
				s.log.Debug(fmt.Sprintf("Maximum of %d schedules reached", limit))
				break
			}
			var record ScheduleRecord
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
