package core

import "time"

const (
	NotifBudgetAlert   NotificationType = "budget_alert"
	NotifBillReminder  NotificationType = "bill_reminder"
	NotifDailyReminder NotificationType = "daily_reminder"
	NotifSummary       NotificationType = "summary"
	NotifSystem        NotificationType = "system"
	NotifGoalAchieved  NotificationType = "goal_achieved"
)

type NotificationType string

// Notification is a single in-app message owned by the notification
// store. EventKey, when set, identifies the logical occurrence that
// produced it; the store never emits twice for the same key.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	IsRead    bool             `json:"is_read"`
	RelatedID string           `json:"related_id,omitempty"`
	Route     string           `json:"route,omitempty"`
	EventKey  string           `json:"event_key,omitempty"`
}

func (t NotificationType) Valid() bool {
	switch t {
	case NotifBudgetAlert, NotifBillReminder, NotifDailyReminder,
		NotifSummary, NotifSystem, NotifGoalAchieved:
		return true
	}
	return false
}
