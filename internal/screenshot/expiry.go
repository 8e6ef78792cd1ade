package screenshot

import "time"

// MaxTTLHours caps an expiry at 100 years. Longer durations overflow
// time.Duration and would wrap the expiry into the past.
const MaxTTLHours = 100 * 365 * 24

// Policy decides when a record expires. Now is swappable for tests.
type Policy struct {
	Now func() time.Time
}

// NewPolicy returns a Policy on the wall clock.
func NewPolicy() *Policy {
	return &Policy{Now: time.Now}
}

func (p *Policy) now() time.Time {
	if p == nil || p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// ComputeExpiry returns nil for a nil ttl (never expires) and now+ttl hours otherwise.
func (p *Policy) ComputeExpiry(ttlHours *int) *time.Time {
	if ttlHours == nil {
		return nil
	}
	t := p.now().Add(time.Duration(*ttlHours) * time.Hour).UTC()
	return &t
}

// IsLive reports whether the record is still reachable through its share link.
// Expiry is never stored as a status; it is re-evaluated on every read.
func (p *Policy) IsLive(rec *Record) bool {
	return rec.ExpiresAt == nil || rec.ExpiresAt.After(p.now())
}

// ValidTTL accepts nil (never) or a positive number of hours up to MaxTTLHours.
func ValidTTL(ttlHours *int) error {
	if ttlHours != nil && (*ttlHours <= 0 || *ttlHours > MaxTTLHours) {
		return ErrInvalidTTL
	}
	return nil
}

// Preset is one of the expiry choices offered to uploaders.
type Preset struct {
	Hours *int   `json:"hours"`
	Label string `json:"label"`
}

// Presets lists the offered expiry choices. The policy itself accepts any
// positive hour count up to MaxTTLHours.
func Presets() []Preset {
	hours := func(n int) *int { return &n }
	return []Preset{
		{Hours: nil, Label: "never"},
		{Hours: hours(1), Label: "1 hour"},
		{Hours: hours(24), Label: "24 hours"},
		{Hours: hours(168), Label: "7 days"},
		{Hours: hours(720), Label: "30 days"},
	}
}
