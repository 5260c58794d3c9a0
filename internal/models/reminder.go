package models

import "time"

// Reminder is a one-shot, owner-scoped reminder. Deletion removes the row, so
// a deleted reminder has no representation here.
type Reminder struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Body        string    `json:"body"`
	DueAt       time.Time `json:"due_at"` // stored in UTC
	IsNotified  bool      `json:"is_notified"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsPending reports whether the reminder still shows up in the owner's list.
func (r *Reminder) IsPending() bool {
	return !r.IsCompleted
}

// DueWithin reports whether DueAt falls in the half-open window (start, end].
func (r *Reminder) DueWithin(start, end time.Time) bool {
	return r.DueAt.After(start) && !r.DueAt.After(end)
}

// StatusPatch is a conditional update. A nil field is left alone; a true field
// only applies while the stored flag is still false, so flags never revert and
// a second identical patch matches nothing.
type StatusPatch struct {
	Completed *bool
	Notified  *bool
}

func MarkCompleted() StatusPatch {
	v := true
	return StatusPatch{Completed: &v}
}

func MarkNotified() StatusPatch {
	v := true
	return StatusPatch{Notified: &v}
}

// IsEmpty reports whether the patch changes nothing.
func (p StatusPatch) IsEmpty() bool {
	return (p.Completed == nil || !*p.Completed) && (p.Notified == nil || !*p.Notified)
}

// Matches reports whether r satisfies the patch preconditions.
func (p StatusPatch) Matches(r *Reminder) bool {
	if p.Completed != nil && *p.Completed && r.IsCompleted {
		return false
	}
	if p.Notified != nil && *p.Notified && r.IsNotified {
		return false
	}
	return true
}

// Apply sets the flags named by the patch on r.
func (p StatusPatch) Apply(r *Reminder) {
	if p.Completed != nil && *p.Completed {
		r.IsCompleted = true
	}
	if p.Notified != nil && *p.Notified {
		r.IsNotified = true
	}
}
