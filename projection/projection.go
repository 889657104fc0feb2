package projection

import (
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/dineboard/restaurant-dashboard/models"
)

// ErrNotLoaded is returned before the first successful Refresh.
var ErrNotLoaded = errors.New("projection not loaded yet")

// Stats are the dashboard counters derived from the table snapshot.
type Stats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Occupied  int `json:"occupied"`
}

// Projection is the locally cached read view of tables and bookings. It is
// disposable: the store is the system of record and Refresh rebuilds the
// whole snapshot from it, in a stable order, with no partial merges. The
// change monitor calls Refresh on every committed change, so the cache only
// ever lags the store by one notification.
type Projection struct {
	db *gorm.DB

	mu       sync.RWMutex
	tables   []models.Table
	bookings []models.Booking
	loaded   bool
	lastErr  error
}

func New(db *gorm.DB) *Projection {
	return &Projection{db: db}
}

// Refresh refetches both collections and replaces the snapshot wholesale.
// Tables come back ordered by number ascending, bookings by date then time
// descending with their table preloaded, so two refreshes with no
// intervening change yield identical snapshots. On a fetch error the
// previous snapshot is kept and the error is surfaced as the load state.
func (p *Projection) Refresh() error {
	var tables []models.Table
	if err := p.db.Order("number ASC").Find(&tables).Error; err != nil {
		p.setErr(err)
		return err
	}

	var bookings []models.Booking
	if err := p.db.Preload("Table").
		Order("date DESC").Order("time DESC").
		Find(&bookings).Error; err != nil {
		p.setErr(err)
		return err
	}

	p.mu.Lock()
	p.tables = tables
	p.bookings = bookings
	p.loaded = true
	p.lastErr = nil
	p.mu.Unlock()
	return nil
}

// Tables returns the cached table list. The error reports the load state:
// ErrNotLoaded before the first refresh, the fetch error after a failed one.
// An empty slice with a nil error genuinely means "no tables".
func (p *Projection) Tables() ([]models.Table, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Table, len(p.tables))
	copy(out, p.tables)
	return out, p.loadState()
}

// Bookings returns the cached booking list with each booking's table
// preloaded for display.
func (p *Projection) Bookings() ([]models.Booking, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Booking, len(p.bookings))
	copy(out, p.bookings)
	return out, p.loadState()
}

// FilterTables narrows the cached table list by status and location.
// "all" (or empty) leaves a dimension unfiltered. This is a derived view
// over the snapshot, not a separate fetch.
func (p *Projection) FilterTables(status, location string) ([]models.Table, error) {
	tables, err := p.Tables()
	if err != nil {
		return nil, err
	}
	out := make([]models.Table, 0, len(tables))
	for _, t := range tables {
		if status != "" && status != "all" && t.Status != status {
			continue
		}
		if location != "" && location != "all" && t.Location != location {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Stats counts the cached tables per status.
func (p *Projection) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := Stats{Total: len(p.tables)}
	for _, t := range p.tables {
		switch t.Status {
		case models.TableAvailable:
			stats.Available++
		case models.TableReserved:
			stats.Reserved++
		case models.TableOccupied:
			stats.Occupied++
		}
	}
	return stats
}

func (p *Projection) setErr(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

// loadState must be called with p.mu held.
func (p *Projection) loadState() error {
	if p.lastErr != nil {
		return p.lastErr
	}
	if !p.loaded {
		return ErrNotLoaded
	}
	return nil
}
