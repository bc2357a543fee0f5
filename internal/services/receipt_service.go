package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"khata/internal/core"
	"khata/internal/engine"
	"khata/internal/log"
	"khata/internal/report"
	"khata/internal/storage"
)

var (
	// ErrEmptyText is returned when a receipt upload carries no OCR text.
	ErrEmptyText = errors.New("receipt text is empty")

	// ErrBadAmount is returned when a manual entry has no positive amount.
	ErrBadAmount = errors.New("amount must be greater than zero")
)

// ExportPublisher notifies the worker that a record awaits ledger export.
type ExportPublisher interface {
	PublishRecordExport(ctx context.Context, id string) error
}

// ReceiptResult carries a persisted record together with its assessment.
type ReceiptResult struct {
	Record         core.ExpenseRecord
	Assessment     engine.Assessment
	AmountDetected bool
}

// ManualEntry is an expense typed in by hand rather than read off a receipt.
type ManualEntry struct {
	Amount     float64
	Category   string
	Merchant   string
	Note       string
	OccurredAt string
}

// ReceiptService orchestrates receipt intake across the extraction engine,
// SQLite and AMQP.
type ReceiptService struct {
	storage   *storage.SQLiteRepository
	publisher ExportPublisher
	logger    *log.StructuredLogger
}

func NewReceiptService(storage *storage.SQLiteRepository, publisher ExportPublisher) *ReceiptService {
	return &ReceiptService{
		storage:   storage,
		publisher: publisher,
		logger:    log.NewStructuredLogger(log.New(log.Config{Component: log.ComponentReceipt})),
	}
}

// ProcessReceipt runs OCR text through amount extraction, categorization and
// assessment, persists the record and queues it for ledger export.
func (s *ReceiptService) ProcessReceipt(ctx context.Context, owner, text, filename string) (ReceiptResult, error) {
	if strings.TrimSpace(text) == "" {
		return ReceiptResult{}, ErrEmptyText
	}

	amount := engine.ExtractTotalAmount(text)
	category := engine.Categorize(text)
	assessment := engine.Assess(category, amount, text)

	rec := core.ExpenseRecord{
		Owner:      owner,
		RawText:    text,
		Category:   category,
		Amount:     amount,
		OccurredAt: time.Now(),
		Merchant:   firstLine(text),
		Filename:   filename,
	}

	id, err := s.storage.InsertRecord(ctx, rec)
	if err != nil {
		return ReceiptResult{}, fmt.Errorf("save record: %w", err)
	}
	rec.ID = id

	s.logger.LogRecordSaved(ctx, id, owner, string(category), amount, string(assessment.Verdict))
	s.publishExport(ctx, id)

	return ReceiptResult{
		Record:         rec,
		Assessment:     assessment,
		AmountDetected: amount > 0,
	}, nil
}

// AddManual persists a hand-entered expense. The assessment runs on a small
// synthetic text blob; when it yields no tips the static bank fills in.
func (s *ReceiptService) AddManual(ctx context.Context, owner string, entry ManualEntry) (ReceiptResult, error) {
	if entry.Amount <= 0 {
		return ReceiptResult{}, ErrBadAmount
	}

	category := core.ParseCategory(entry.Category)
	blob := strings.TrimSpace(entry.Merchant + "\n" + entry.Note + "\nCategory: " + string(category))

	assessment := engine.Assess(category, entry.Amount, blob)
	if len(assessment.Tips) == 0 {
		assessment.Tips = engine.StaticTips(category, nil)
	}

	rec := core.ExpenseRecord{
		Owner:      owner,
		RawText:    blob,
		Category:   category,
		Amount:     entry.Amount,
		OccurredAt: core.ParseTimestamp(entry.OccurredAt, time.Now()),
		Merchant:   entry.Merchant,
		Note:       entry.Note,
	}

	id, err := s.storage.InsertRecord(ctx, rec)
	if err != nil {
		return ReceiptResult{}, fmt.Errorf("save record: %w", err)
	}
	rec.ID = id

	s.logger.LogRecordSaved(ctx, id, owner, string(category), entry.Amount, string(assessment.Verdict))
	s.publishExport(ctx, id)

	return ReceiptResult{
		Record:         rec,
		Assessment:     assessment,
		AmountDetected: true,
	}, nil
}

// Summary builds the current-month overview for an owner.
func (s *ReceiptService) Summary(ctx context.Context, owner string, now time.Time) (report.Summary, error) {
	records, err := s.storage.ListRecords(ctx, owner)
	if err != nil {
		return report.Summary{}, fmt.Errorf("list records: %w", err)
	}
	settings, err := s.storage.GetSettings(ctx, owner)
	if err != nil {
		return report.Summary{}, fmt.Errorf("get settings: %w", err)
	}
	return report.Summarize(records, settings, now), nil
}

// CategoryBreakdown ranks the owner's all-time spend per category.
func (s *ReceiptService) CategoryBreakdown(ctx context.Context, owner string) ([]report.CategoryTotal, error) {
	records, err := s.storage.ListRecords(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return report.Breakdown(records), nil
}

// Analysis builds trend, category and forecast views for a date range.
// Missing or malformed bounds fall back to the current month.
func (s *ReceiptService) Analysis(ctx context.Context, owner, start, end string, now time.Time) (report.Analysis, error) {
	records, err := s.storage.ListRecords(ctx, owner)
	if err != nil {
		return report.Analysis{}, fmt.Errorf("list records: %w", err)
	}
	settings, err := s.storage.GetSettings(ctx, owner)
	if err != nil {
		return report.Analysis{}, fmt.Errorf("get settings: %w", err)
	}
	period := report.ParseRange(start, end, now)
	return report.Analyze(records, settings, period, now), nil
}

// SetBudget updates the monthly budget and savings goal, keeping caps intact.
func (s *ReceiptService) SetBudget(ctx context.Context, owner string, monthlyBudget, savingsGoal float64) (core.Settings, error) {
	settings, err := s.storage.GetSettings(ctx, owner)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	settings.MonthlyBudget = monthlyBudget
	settings.SavingsGoal = savingsGoal
	if err := s.storage.SaveSettings(ctx, settings); err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return settings, nil
}

// SetCategoryCaps replaces the per-category spending caps.
func (s *ReceiptService) SetCategoryCaps(ctx context.Context, owner string, caps map[core.Category]float64) (core.Settings, error) {
	settings, err := s.storage.GetSettings(ctx, owner)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	settings.CategoryCaps = caps
	if err := s.storage.SaveSettings(ctx, settings); err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return settings, nil
}

// DeleteLast removes the owner's most recent record.
func (s *ReceiptService) DeleteLast(ctx context.Context, owner string) (core.ExpenseRecord, error) {
	return s.storage.DeleteLast(ctx, owner)
}

// ClearData wipes every record and setting for the owner.
func (s *ReceiptService) ClearData(ctx context.Context, owner string) (int64, error) {
	return s.storage.ClearOwner(ctx, owner)
}

func (s *ReceiptService) publishExport(ctx context.Context, id string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Export publisher not available, skipping export message", "record_id", id)
		return
	}
	if err := s.publisher.PublishRecordExport(ctx, id); err != nil {
		// The periodic sweep picks the record up later.
		s.logger.LogError(ctx, "Failed to publish export message", err,
			log.ComponentAMQP, log.OpExport, log.LogFields{log.FieldRecordID: id})
	}
}

// firstLine returns the first non-empty line of the receipt text, used as
// the merchant label.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Close closes the underlying storage connection.
func (s *ReceiptService) Close() error {
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}
