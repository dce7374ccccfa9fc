package policy

import "sort"

// RefundPercent resolves the refund percentage for a cancellation made
// hoursBeforeCheckIn hours ahead of the check-in boundary. Rules are walked
// from the largest threshold down and the first rule whose threshold is met
// wins; when none is met (for example the check-in time already passed) the
// lowest-threshold rule applies. No rules means no refund.
//
// This is the single source of truth for refund math; room types reference a
// policy rather than carrying their own copy of it.
func RefundPercent(p *CancellationPolicy, hoursBeforeCheckIn float64) int {
	if p == nil || len(p.Rules) == 0 {
		return 0
	}

	rules := make([]CancellationRule, len(p.Rules))
	copy(rules, p.Rules)
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].HoursBeforeCheckIn > rules[j].HoursBeforeCheckIn
	})

	for _, r := range rules {
		if float64(r.HoursBeforeCheckIn) <= hoursBeforeCheckIn {
			return clampPercent(r.RefundPercent)
		}
	}

	return clampPercent(rules[len(rules)-1].RefundPercent)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
