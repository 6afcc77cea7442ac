package extract

import (
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
)

// Stats accumulates data-quality counters for one entity type while pages
// stream in. The totals land in the run's metadata so operators can judge
// upstream data quality without querying the staging tables.
type Stats struct {
	Total      int
	Malformed  int
	MissingID  int
	Duplicates int

	// Contact field presence.
	WithMobile         int
	WithEmail          int
	WithIdentification int
	WithCustomAttrs    int

	// Chat field presence.
	WithAgent      int
	WithContact    int
	WithDepartment int
	WithMessages   int
	TotalMessages  int

	ByProvider map[string]int
	ByStatus   map[string]int

	EarliestSeen *time.Time
	LatestSeen   *time.Time
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{
		ByProvider: make(map[string]int),
		ByStatus:   make(map[string]int),
	}
}

// ObserveContact folds one staged contact record into the counters.
func (s *Stats) ObserveContact(rec b2chat.ContactRecord) {
	s.Total++
	if rec.Contact == nil {
		s.Malformed++
		return
	}
	c := rec.Contact
	if c.ContactID == "" {
		s.MissingID++
	}
	if c.Mobile != "" {
		s.WithMobile++
	}
	if c.Email != "" {
		s.WithEmail++
	}
	if c.Identification != "" {
		s.WithIdentification++
	}
	if len(c.CustomAttributes) > 0 {
		s.WithCustomAttrs++
	}
	s.observeTime(c.CreatedAt.Ptr())
	s.observeTime(c.UpdatedAt.Ptr())
}

// ObserveChat folds one staged chat record into the counters.
func (s *Stats) ObserveChat(rec b2chat.ChatRecord) {
	s.Total++
	if rec.Chat == nil {
		s.Malformed++
		return
	}
	c := rec.Chat
	if c.ChatID == "" {
		s.MissingID++
	}
	if !c.Agent.IsZero() {
		s.WithAgent++
	}
	if !c.Contact.IsZero() {
		s.WithContact++
	}
	if !c.Department.IsZero() {
		s.WithDepartment++
	}
	if len(c.Messages) > 0 {
		s.WithMessages++
		s.TotalMessages += len(c.Messages)
	}
	if c.Provider != "" {
		s.ByProvider[c.Provider]++
	}
	if c.Status != "" {
		s.ByStatus[c.Status]++
	}
	s.observeTime(c.CreatedAt.Ptr())
}

// AddDuplicates records staged rows skipped as duplicates of earlier inserts.
func (s *Stats) AddDuplicates(n int) {
	s.Duplicates += n
}

// AvgMessagesPerChat returns the mean message count across well-formed chats.
func (s *Stats) AvgMessagesPerChat() float64 {
	seen := s.Total - s.Malformed
	if seen <= 0 {
		return 0
	}
	return float64(s.TotalMessages) / float64(seen)
}

func (s *Stats) observeTime(t *time.Time) {
	if t == nil || t.IsZero() {
		return
	}
	if s.EarliestSeen == nil || t.Before(*s.EarliestSeen) {
		v := *t
		s.EarliestSeen = &v
	}
	if s.LatestSeen == nil || t.After(*s.LatestSeen) {
		v := *t
		s.LatestSeen = &v
	}
}

// Metadata renders the counters for run metadata. Contact runs omit the chat
// fields and vice versa.
func (s *Stats) Metadata(chats bool) map[string]any {
	meta := map[string]any{
		"total":              s.Total,
		"malformed":          s.Malformed,
		"missing_id":         s.MissingID,
		"duplicates_skipped": s.Duplicates,
	}
	if chats {
		meta["with_agent"] = s.WithAgent
		meta["with_contact"] = s.WithContact
		meta["with_department"] = s.WithDepartment
		meta["with_messages"] = s.WithMessages
		meta["total_messages"] = s.TotalMessages
		meta["avg_messages_per_chat"] = s.AvgMessagesPerChat()
		meta["by_provider"] = s.ByProvider
		meta["by_status"] = s.ByStatus
	} else {
		meta["with_mobile"] = s.WithMobile
		meta["with_email"] = s.WithEmail
		meta["with_identification"] = s.WithIdentification
		meta["with_custom_attributes"] = s.WithCustomAttrs
	}
	if s.EarliestSeen != nil {
		meta["earliest_seen"] = s.EarliestSeen.UTC().Format(time.RFC3339)
	}
	if s.LatestSeen != nil {
		meta["latest_seen"] = s.LatestSeen.UTC().Format(time.RFC3339)
	}
	return meta
}
