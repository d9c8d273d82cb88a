package leads

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wolfman30/oneroot-leads/internal/localstore"
	"github.com/wolfman30/oneroot-leads/internal/observability/metrics"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// FallbackStore is the append-only list of leads whose remote write failed.
// Each lead is one JSON element of the list under KeyCollectedPhones, so
// instances sharing a local store never overwrite each other's appends.
type FallbackStore struct {
	store   localstore.Store
	logger  *logging.Logger
	metrics *metrics.LeadMetrics
}

// NewFallbackStore wraps a local store.
func NewFallbackStore(store localstore.Store, logger *logging.Logger, m *metrics.LeadMetrics) *FallbackStore {
	if store == nil {
		panic("leads: local store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackStore{store: store, logger: logger, metrics: m}
}

// Append adds lead to the list. Failures are logged, never returned; the
// result only reports whether the lead is durable.
func (f *FallbackStore) Append(ctx context.Context, lead Lead) bool {
	err := f.append(ctx, lead)
	f.metrics.ObserveFallbackWrite(err == nil)
	if err != nil {
		f.logger.Error("failed to save lead to local fallback", "error", err, "source", lead.Source)
		return false
	}
	f.logger.Info("lead saved to local fallback", "source", lead.Source, "device_type", lead.DeviceType)
	return true
}

func (f *FallbackStore) append(ctx context.Context, lead Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("leads: encode fallback: %w", err)
	}
	if err := f.store.Append(ctx, localstore.KeyCollectedPhones, string(data)); err != nil {
		return fmt.Errorf("leads: write fallback: %w", err)
	}
	return nil
}

// Exists scans the list for an exact canonical match. Read errors yield false.
func (f *FallbackStore) Exists(ctx context.Context, phone string) bool {
	all, err := f.ExportAll(ctx)
	if err != nil {
		f.logger.Error("failed to check local fallback", "error", err)
		return false
	}
	for _, l := range all {
		if l.PhoneNumber == phone {
			return true
		}
	}
	return false
}

// ExportAll returns every stored lead in insertion order. Entries that do
// not decode are logged and skipped.
func (f *FallbackStore) ExportAll(ctx context.Context) ([]Lead, error) {
	raw, err := f.store.List(ctx, localstore.KeyCollectedPhones)
	if err != nil {
		return nil, fmt.Errorf("leads: read fallback: %w", err)
	}
	out := make([]Lead, 0, len(raw))
	for i, entry := range raw {
		var lead Lead
		if err := json.Unmarshal([]byte(entry), &lead); err != nil {
			f.logger.Warn("skipping unreadable fallback entry", "error", err, "index", i)
			continue
		}
		out = append(out, lead)
	}
	return out, nil
}
