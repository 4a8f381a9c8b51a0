package core

// Classification rules shared by derivation and aggregation. Every screen
// reads these constants; the thresholds are defined exactly once.
const (
	// BudgetWarningPercent marks a budget as warning at and above this
	// spend percentage.
	BudgetWarningPercent = 80.0
	// BudgetOverPercent marks a budget as over-budget at and above this
	// spend percentage.
	BudgetOverPercent = 100.0

	// DueSoonDays is the inclusive upper bound of the due_soon bucket.
	DueSoonDays = 3
	// DueThisWeekDays is the inclusive upper bound of the due_this_week
	// bucket.
	DueThisWeekDays = 7
)

const (
	BucketOverdue     UrgencyBucket = "overdue"
	BucketDueToday    UrgencyBucket = "due_today"
	BucketDueSoon     UrgencyBucket = "due_soon"
	BucketDueThisWeek UrgencyBucket = "due_this_week"
	BucketScheduled   UrgencyBucket = "scheduled"
)

// UrgencyBucket classifies a date's proximity to today.
type UrgencyBucket string
