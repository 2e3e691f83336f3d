package window

import (
	"errors"
	"fmt"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
)

// ErrInvalidLabel is returned for period labels outside 7d/30d/90d.
var ErrInvalidLabel = errors.New("invalid window label")

var labelDays = map[string]int{
	models.Window7d:  7,
	models.Window30d: 30,
	models.Window90d: 90,
}

// AllLabels returns every supported window label, shortest first.
func AllLabels() []string {
	return []string{models.Window7d, models.Window30d, models.Window90d}
}

// ValidLabel reports whether label is a supported window label.
func ValidLabel(label string) bool {
	_, ok := labelDays[label]
	return ok
}

// Resolve turns a period label into a concrete [start, end) range anchored to
// ref. Ref is taken as-is so backfills can anchor against historical instants;
// callers wanting "now" pass time.Now() once per run, never per tenant.
func Resolve(label string, ref time.Time) (models.TimeWindow, error) {
	days, ok := labelDays[label]
	if !ok {
		return models.TimeWindow{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	end := ref.UTC()
	return models.TimeWindow{
		Label: label,
		Start: end.AddDate(0, 0, -days),
		End:   end,
	}, nil
}

// ResolveAll resolves every label against the same reference instant.
func ResolveAll(labels []string, ref time.Time) ([]models.TimeWindow, error) {
	windows := make([]models.TimeWindow, 0, len(labels))
	for _, label := range labels {
		w, err := Resolve(label, ref)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}
