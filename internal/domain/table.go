package domain

import (
	"errors"
	"time"
)

var (
	ErrTableUnavailable = errors.New("table is not available")
	ErrNotOccupied      = errors.New("table is not occupied")
	ErrNotPaused        = errors.New("table is not paused")
	ErrNoActiveSession  = errors.New("table has no active session")
	ErrLineNotFound     = errors.New("food line not found")
)

// The Table aggregate owns every session transition. All mutators below
// either apply their full effect or return an error with the table
// unchanged; callers never reach into Session.FoodItems directly.

// StartSession occupies an available table with a fresh session. The hourly
// rate is snapshotted from the table and stays frozen for the session's
// lifetime even if the table rate is edited later.
func (t *Table) StartSession(id string, customerName string, customerPhone string, customerEmail string, startedBy string, now time.Time) error {
	if t.Status != TableAvailable {
		return ErrTableUnavailable
	}

	t.Session = &Session{
		ID:              id,
		TableID:         t.ID,
		CustomerName:    customerName,
		CustomerPhone:   customerPhone,
		CustomerEmail:   customerEmail,
		StartTime:       now,
		PausedDuration:  0,
		HourlyRateCents: t.HourlyRateCents,
		FoodItems:       []FoodItem{},
		StartedBy:       startedBy,
	}
	t.Status = TableOccupied
	return nil
}

// Pause freezes time accrual. Only an occupied table can pause.
func (t *Table) Pause(now time.Time) error {
	if t.Status != TableOccupied || t.Session == nil {
		return ErrNotOccupied
	}

	pausedAt := now
	t.Session.PausedAt = &pausedAt
	t.Status = TablePaused
	return nil
}

// Resume folds the pause interval into PausedDuration and clears PausedAt.
func (t *Table) Resume(now time.Time) error {
	if t.Status != TablePaused || t.Session == nil || t.Session.PausedAt == nil {
		return ErrNotPaused
	}

	t.Session.PausedDuration += now.Sub(*t.Session.PausedAt)
	t.Session.PausedAt = nil
	t.Status = TableOccupied
	return nil
}

// AddFood attaches a menu item line, merging into an existing line with the
// same source menu item by incrementing its quantity. The price is the
// caller's snapshot from the catalog at add-time.
func (t *Table) AddFood(lineID string, item MenuItem, quantity int) error {
	if t.Session == nil {
		return ErrNoActiveSession
	}

	for i := range t.Session.FoodItems {
		line := &t.Session.FoodItems[i]
		if !line.IsBundle && line.MenuItemID == item.ID {
			line.Quantity += quantity
			return nil
		}
	}

	t.Session.FoodItems = append(t.Session.FoodItems, FoodItem{
		ID:         lineID,
		Name:       item.Name,
		PriceCents: item.PriceCents,
		Quantity:   quantity,
		MenuItemID: item.ID,
	})
	return nil
}

// AddBundle attaches a bundle line with the same merge-by-source semantics,
// keyed by bundle id. BundleItems carries the expanded component labels.
func (t *Table) AddBundle(lineID string, bundle Bundle, quantity int) error {
	if t.Session == nil {
		return ErrNoActiveSession
	}

	for i := range t.Session.FoodItems {
		line := &t.Session.FoodItems[i]
		if line.IsBundle && line.BundleID == bundle.ID {
			line.Quantity += quantity
			return nil
		}
	}

	components := make([]string, len(bundle.Items))
	copy(components, bundle.Items)
	t.Session.FoodItems = append(t.Session.FoodItems, FoodItem{
		ID:          lineID,
		Name:        bundle.Name,
		PriceCents:  bundle.PriceCents,
		Quantity:    quantity,
		IsBundle:    true,
		BundleItems: components,
		BundleID:    bundle.ID,
	})
	return nil
}

// RemoveFood removes the line matching the generated line id entirely,
// regardless of its quantity. No zero-quantity lines ever persist.
func (t *Table) RemoveFood(lineID string) error {
	if t.Session == nil {
		return ErrNoActiveSession
	}

	for i, line := range t.Session.FoodItems {
		if line.ID == lineID {
			t.Session.FoodItems = append(t.Session.FoodItems[:i], t.Session.FoodItems[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

// EndSession detaches and returns the session, returning the table to
// available. A paused session is resumed first so the final pause interval
// is accounted. Ending does not bill; the caller owns the billing flow.
func (t *Table) EndSession(now time.Time) (*Session, error) {
	if t.Session == nil {
		return nil, ErrNoActiveSession
	}

	if t.Session.PausedAt != nil {
		t.Session.PausedDuration += now.Sub(*t.Session.PausedAt)
		t.Session.PausedAt = nil
	}

	ended := t.Session
	t.Session = nil
	t.Status = TableAvailable
	return ended, nil
}

// Elapsed reports the billable wall-clock time accrued so far: now minus
// start minus accumulated pauses. While paused, the clock is frozen at the
// pause instant.
func (s *Session) Elapsed(now time.Time) time.Duration {
	ref := now
	if s.PausedAt != nil {
		ref = *s.PausedAt
	}
	elapsed := ref.Sub(s.StartTime) - s.PausedDuration
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// FoodTotalCents sums the session's F&B lines in integer cents.
func (s *Session) FoodTotalCents() int64 {
	total := int64(0)
	for _, line := range s.FoodItems {
		total += line.PriceCents * int64(line.Quantity)
	}
	return total
}

// Clone returns a deep copy so callers can hand sessions across API
// boundaries without sharing the food line slice.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	dup := *s
	if s.PausedAt != nil {
		pausedAt := *s.PausedAt
		dup.PausedAt = &pausedAt
	}
	dup.FoodItems = make([]FoodItem, len(s.FoodItems))
	copy(dup.FoodItems, s.FoodItems)
	for i, line := range dup.FoodItems {
		if len(line.BundleItems) > 0 {
			items := make([]string, len(line.BundleItems))
			copy(items, line.BundleItems)
			dup.FoodItems[i].BundleItems = items
		}
	}
	return &dup
}

// CloneTable deep-copies a table together with its session.
func (t *Table) CloneTable() *Table {
	if t == nil {
		return nil
	}
	dup := *t
	dup.Session = t.Session.Clone()
	return &dup
}
