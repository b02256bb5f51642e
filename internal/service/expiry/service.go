package expiry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/repository/sheets"
	"github.com/mamadbah2/inventory/pkg/clients/notifier"
)

const dateFormat = "2006-01-02"

// InventoryFilter is the part of the inventory service the sweep needs.
type InventoryFilter interface {
	Filter(ctx context.Context, params models.FilterParams) ([]models.Inventory, error)
}

// Report is the outcome of a single sweep.
type Report struct {
	RanAt    time.Time
	Expired  []models.Inventory
	Notified bool
	Exported bool
}

// Service finds expired inventory and forwards it to the configured sinks.
type Service struct {
	inventory InventoryFilter
	notifier  notifier.Client
	sheets    sheets.Repository
	logger    *zap.Logger
}

// NewService wires the sweep. notifierClient and sheetsRepo may be nil to
// disable the corresponding sink.
func NewService(inventory InventoryFilter, notifierClient notifier.Client, sheetsRepo sheets.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		inventory: inventory,
		notifier:  notifierClient,
		sheets:    sheetsRepo,
		logger:    logger,
	}
}

// Run collects the records whose best-before date is before now, skipping
// those flagged neverExpires. Sink failures do not stop the other sinks and
// are returned joined.
func (s *Service) Run(ctx context.Context, now time.Time) (Report, error) {
	now = now.UTC()
	report := Report{RanAt: now}

	candidates, err := s.inventory.Filter(ctx, models.FilterParams{BestBefore: &now})
	if err != nil {
		return report, fmt.Errorf("query expired inventory: %w", err)
	}

	for _, item := range candidates {
		if item.Expired(now) {
			report.Expired = append(report.Expired, item)
		}
	}

	s.logger.Info("expiry sweep completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("expired", len(report.Expired)))

	if len(report.Expired) == 0 {
		return report, nil
	}

	var errs []error
	if s.notifier != nil {
		if err := s.notifier.SendDigest(ctx, buildDigest(now, report.Expired)); err != nil {
			s.logger.Error("failed to send expiry digest", zap.Error(err))
			errs = append(errs, err)
		} else {
			report.Notified = true
		}
	}

	if s.sheets != nil {
		if err := s.sheets.AppendRows(ctx, buildRows(now, report.Expired)); err != nil {
			s.logger.Error("failed to export expired inventory", zap.Error(err))
			errs = append(errs, err)
		} else {
			report.Exported = true
		}
	}

	return report, errors.Join(errs...)
}

func buildDigest(now time.Time, items []models.Inventory) notifier.Digest {
	digest := notifier.Digest{GeneratedAt: now, Count: len(items)}
	for _, item := range items {
		entry := notifier.DigestItem{
			ID:                item.ID,
			Name:              item.Name,
			ProductType:       item.ProductType,
			UnitOfMeasurement: string(item.UnitOfMeasurement),
			BestBeforeDate:    *item.BestBeforeDate,
		}
		if item.Amount != nil {
			entry.Amount = item.Amount.String()
		}
		digest.Items = append(digest.Items, entry)
	}
	return digest
}

func buildRows(now time.Time, items []models.Inventory) [][]interface{} {
	rows := make([][]interface{}, 0, len(items))
	for _, item := range items {
		amount := ""
		if item.Amount != nil {
			amount = item.Amount.String()
		}
		rows = append(rows, []interface{}{
			now.Format(dateFormat),
			item.ID,
			item.Name,
			amount,
			item.UnitOfMeasurement.Abbreviation(),
			item.BestBeforeDate.Format(dateFormat),
		})
	}
	return rows
}
