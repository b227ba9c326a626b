package history

import "time"

// DateGroup is one display bucket of the conversation index.
type DateGroup struct {
	Label         string
	Conversations []Conversation
}

// BucketLabel names the display bucket for a timestamp: "Today",
// "Yesterday", or the calendar day ("January 02").
func BucketLabel(t, now time.Time) string {
	switch {
	case sameDay(t, now):
		return "Today"
	case sameDay(t, now.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return t.Format("January 02")
	}
}

// GroupByDate partitions conversations (assumed sorted by date descending)
// into calendar-day buckets. Bucket order follows the input order, so the
// result is Today, Yesterday, then older days descending; items keep their
// recency order within each bucket.
func GroupByDate(convs []Conversation, now time.Time) []DateGroup {
	var groups []DateGroup
	for _, c := range convs {
		if n := len(groups); n > 0 && sameDay(groups[n-1].Conversations[0].Date, c.Date) {
			groups[n-1].Conversations = append(groups[n-1].Conversations, c)
			continue
		}
		groups = append(groups, DateGroup{
			Label:         BucketLabel(c.Date, now),
			Conversations: []Conversation{c},
		})
	}
	return groups
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
