package calculator

import (
	"fmt"
	"time"

	"ContractPulse/internal/model"
)

// WindowPolicy selects how window lengths are measured.
type WindowPolicy string

const (
	// PolicyCalendar measures spans in calendar days. Default.
	PolicyCalendar WindowPolicy = "calendar"
	// PolicyTrading measures spans in samples (trading days).
	PolicyTrading WindowPolicy = "trading"
)

// ParsePolicy maps a config string to a policy. The empty string is calendar.
func ParsePolicy(s string) (WindowPolicy, error) {
	switch WindowPolicy(s) {
	case "", PolicyCalendar:
		return PolicyCalendar, nil
	case PolicyTrading:
		return PolicyTrading, nil
	default:
		return "", fmt.Errorf("unknown window policy %q", s)
	}
}

// Params are the caller-supplied window parameters.
type Params struct {
	PreDays  int
	PostDays int
	Policy   WindowPolicy
	// Workers > 1 evaluates events concurrently. Output order is unaffected.
	Workers int
}

// DefaultParams returns 30 calendar days before and 90 after the event.
func DefaultParams() Params {
	return Params{PreDays: 30, PostDays: 90, Policy: PolicyCalendar, Workers: 1}
}

// Resolve splits the store around anchor into a pre-window (dates strictly
// before the anchor day) and a post-window (dates on or after it). A sample
// can never fall into both.
//
// Anchors outside the store's coverage are handled per policy:
//
//   - Calendar windows are bounded by dates. A window that does not reach the
//     data is empty, and both are empty only when the anchor is farther than
//     PreDays past the last sample or PostDays before the first. An anchor a
//     few days after the last sample keeps the tail of the data in pre.
//   - Trading-day windows count samples and have no date bound, so both are
//     empty whenever the anchor lies outside [first, last]. Otherwise stale
//     samples from any distance would be pulled in.
func Resolve(s *Store, anchor time.Time, p Params) (pre, post model.Window) {
	day := model.Day(anchor)
	pre = model.Window{AnchorDate: day, Span: model.SpanPre}
	post = model.Window{AnchorDate: day, Span: model.SpanPost}
	if s.Empty() {
		return pre, post
	}

	split := s.search(day)
	switch p.Policy {
	case PolicyTrading:
		if !s.Covers(day) {
			return pre, post
		}
		if p.PreDays > 0 {
			pre.Samples = s.slice(max(0, split-p.PreDays), split)
		}
		if p.PostDays > 0 {
			post.Samples = s.slice(split, min(s.Len(), split+p.PostDays))
		}
	default:
		if p.PreDays > 0 {
			pre.Samples = s.slice(s.search(day.AddDate(0, 0, -p.PreDays)), split)
		}
		if p.PostDays > 0 {
			post.Samples = s.slice(split, s.search(day.AddDate(0, 0, p.PostDays)))
		}
	}
	return pre, post
}
