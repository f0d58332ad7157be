package recurrence

import "github.com/noah-isme/academic-registrar-api/internal/models"

// Index buckets occurrences by calendar date so overlap checks only compare
// occurrences on the same day.
type Index map[models.Date][]models.Occurrence

// NewIndex builds an index over occurrences.
func NewIndex(occurrences []models.Occurrence) Index {
	idx := make(Index, len(occurrences))
	for _, o := range occurrences {
		day := models.DateOf(o.Start)
		idx[day] = append(idx[day], o)
	}
	return idx
}

// Overlaps reports whether any of others overlaps an indexed occurrence.
func (idx Index) Overlaps(others []models.Occurrence) bool {
	for _, other := range others {
		for _, o := range idx[models.DateOf(other.Start)] {
			if o.Overlaps(other) {
				return true
			}
		}
	}
	return false
}

// AnyOverlap reports whether two occurrence lists share any instant.
func AnyOverlap(a, b []models.Occurrence) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	return NewIndex(a).Overlaps(b)
}
