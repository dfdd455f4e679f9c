// Package sqlstore keeps custody records in a relational database through
// gorm. The three tables mirror the records/logs/evidence relations and use
// camelCase column names so a patch's field names are also column names.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/models"
)

type recordRow struct {
	ID               string     `gorm:"column:id;primaryKey;size:32"`
	DetaineeName     string     `gorm:"column:detaineeName"`
	Age              int        `gorm:"column:age"`
	Gender           string     `gorm:"column:gender"`
	DateTimeDetained time.Time  `gorm:"column:dateTimeDetained;index"`
	Location         string     `gorm:"column:location"`
	Reason           string     `gorm:"column:reason"`
	Status           string     `gorm:"column:status;size:64"`
	PoliceStation    string     `gorm:"column:policeStation"`
	OfficerInCharge  string     `gorm:"column:officerInCharge"`
	LastMedicalCheck *time.Time `gorm:"column:lastMedicalCheck"`
	RiskLevel        string     `gorm:"column:riskLevel;size:16"`
	IsArchived       bool       `gorm:"column:isArchived;index"`
}

func (recordRow) TableName() string { return "records" }

// logRow.Seq records append order and breaks ties between entries
// stamped in the same millisecond.
type logRow struct {
	Seq         uint64    `gorm:"column:seq;primaryKey;autoIncrement"`
	RecordID    string    `gorm:"column:recordId;uniqueIndex:idx_logs_record_entry;size:32"`
	ID          string    `gorm:"column:id;uniqueIndex:idx_logs_record_entry;size:64"`
	Timestamp   time.Time `gorm:"column:timestamp;index"`
	Action      string    `gorm:"column:action"`
	PerformedBy string    `gorm:"column:performedBy"`
	Notes       string    `gorm:"column:notes"`
	IsInternal  bool      `gorm:"column:isInternal"`
}

func (logRow) TableName() string { return "logs" }

type evidenceRow struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	RecordID   string    `gorm:"column:recordId;index;size:32"`
	Filename   string    `gorm:"column:filename"`
	Type       string    `gorm:"column:type;size:16"`
	UploadedAt time.Time `gorm:"column:uploadedAt"`
}

func (evidenceRow) TableName() string { return "evidence" }

type txKey struct{}

// Store implements custody.Store on gorm
type Store struct {
	db *gorm.DB
}

var _ custody.Store = (*Store)(nil)

// Open connects with the named driver ("sqlite" or "mysql") and migrates the schema
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" && strings.Contains(dsn, "memory") {
		// every connection to an in-memory sqlite database gets its own database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&recordRow{}, &logRow{}, &evidenceRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database is reachable within timeout
func (s *Store) Ping(ctx context.Context, timeout time.Duration) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

// WithTransaction runs fn inside a database transaction. Nested calls join
// the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// RecordExists reports whether a record row with id exists
func (s *Store) RecordExists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.conn(ctx).Model(&recordRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindRecord returns the record row
func (s *Store) FindRecord(ctx context.Context, id string) (*models.Record, error) {
	var row recordRow
	err := s.conn(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, custody.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec := row.toModel()
	return &rec, nil
}

// InsertRecord inserts the record row
func (s *Store) InsertRecord(ctx context.Context, rec models.Record) error {
	row := recordRow{
		ID:               rec.ID,
		DetaineeName:     rec.DetaineeName,
		Age:              rec.Age,
		Gender:           rec.Gender,
		DateTimeDetained: rec.DateTimeDetained,
		Location:         rec.Location,
		Reason:           rec.Reason,
		Status:           string(rec.Status),
		PoliceStation:    rec.PoliceStation,
		OfficerInCharge:  rec.OfficerInCharge,
		LastMedicalCheck: rec.LastMedicalCheck,
		RiskLevel:        string(rec.RiskLevel),
		IsArchived:       rec.IsArchived,
	}
	return translate(s.conn(ctx).Create(&row).Error)
}

// PatchRecord sets the given columns on one record
func (s *Store) PatchRecord(ctx context.Context, id string, fields map[string]interface{}) error {
	res := s.conn(ctx).Model(&recordRow{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	return s.requireMatch(ctx, id, res.RowsAffected)
}

// SetArchived marks one record archived
func (s *Store) SetArchived(ctx context.Context, id string) error {
	res := s.conn(ctx).Model(&recordRow{}).Where("id = ?", id).Update("isArchived", true)
	if res.Error != nil {
		return res.Error
	}
	return s.requireMatch(ctx, id, res.RowsAffected)
}

// requireMatch distinguishes "no such row" from "row already had these
// values", which mysql also reports as zero affected rows.
func (s *Store) requireMatch(ctx context.Context, id string, affected int64) error {
	if affected > 0 {
		return nil
	}
	exists, err := s.RecordExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return custody.ErrNotFound
	}
	return nil
}

// InsertLog appends one audit entry
func (s *Store) InsertLog(ctx context.Context, recordID string, entry models.LogEntry) error {
	row := logRow{
		RecordID:    recordID,
		ID:          entry.ID,
		Timestamp:   entry.Timestamp,
		Action:      entry.Action,
		PerformedBy: entry.PerformedBy,
		Notes:       entry.Notes,
		IsInternal:  entry.IsInternal,
	}
	return translate(s.conn(ctx).Create(&row).Error)
}

// InsertEvidence registers an uploaded file
func (s *Store) InsertEvidence(ctx context.Context, ev models.Evidence) error {
	row := evidenceRow{
		RecordID:   ev.RecordID,
		Filename:   ev.Filename,
		Type:       string(ev.Category),
		UploadedAt: ev.UploadedAt,
	}
	return s.conn(ctx).Create(&row).Error
}

// ActiveRecords returns every non-archived record row, most recent detention first
func (s *Store) ActiveRecords(ctx context.Context) ([]models.Record, error) {
	var rows []recordRow
	err := s.conn(ctx).
		Where(map[string]interface{}{"isArchived": false}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "dateTimeDetained"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	recs := make([]models.Record, len(rows))
	for i, row := range rows {
		recs[i] = row.toModel()
	}
	return recs, nil
}

// LogsFor returns the audit entries of the given records, oldest first
func (s *Store) LogsFor(ctx context.Context, recordIDs []string) (map[string][]models.LogEntry, error) {
	out := make(map[string][]models.LogEntry, len(recordIDs))
	if len(recordIDs) == 0 {
		return out, nil
	}
	var rows []logRow
	err := s.conn(ctx).
		Where(map[string]interface{}{"recordId": recordIDs}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "seq"}}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.RecordID] = append(out[row.RecordID], models.LogEntry{
			ID:          row.ID,
			Timestamp:   row.Timestamp.UTC(),
			Action:      row.Action,
			PerformedBy: row.PerformedBy,
			Notes:       row.Notes,
			IsInternal:  row.IsInternal,
		})
	}
	return out, nil
}

// EvidenceFor returns the file registrations of the given records in upload order
func (s *Store) EvidenceFor(ctx context.Context, recordIDs []string) (map[string][]models.Evidence, error) {
	out := make(map[string][]models.Evidence, len(recordIDs))
	if len(recordIDs) == 0 {
		return out, nil
	}
	var rows []evidenceRow
	err := s.conn(ctx).
		Where(map[string]interface{}{"recordId": recordIDs}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "uploadedAt"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.RecordID] = append(out[row.RecordID], models.Evidence{
			RecordID:   row.RecordID,
			Filename:   row.Filename,
			Category:   models.FileCategory(row.Type),
			UploadedAt: row.UploadedAt.UTC(),
		})
	}
	return out, nil
}

func (row recordRow) toModel() models.Record {
	rec := models.Record{
		ID:               row.ID,
		DetaineeName:     row.DetaineeName,
		Age:              row.Age,
		Gender:           row.Gender,
		DateTimeDetained: row.DateTimeDetained.UTC(),
		Location:         row.Location,
		Reason:           row.Reason,
		Status:           models.Status(row.Status),
		PoliceStation:    row.PoliceStation,
		OfficerInCharge:  row.OfficerInCharge,
		RiskLevel:        models.RiskLevel(row.RiskLevel),
		IsArchived:       row.IsArchived,
	}
	if row.LastMedicalCheck != nil {
		t := row.LastMedicalCheck.UTC()
		rec.LastMedicalCheck = &t
	}
	return rec
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", custody.ErrDuplicate, err)
	}
	return err
}
