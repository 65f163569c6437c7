package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName      = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"
)

// Urgency levels for the "urgency" hint.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// Notification is a desktop notification sent to org.freedesktop.Notifications.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // milliseconds, -1 for server default
}

// NewNotification creates a notification with the server default timeout.
func NewNotification(appName, summary, body string) *Notification {
	return &Notification{
		AppName:       appName,
		Summary:       summary,
		Body:          body,
		Hints:         make(map[string]dbus.Variant),
		ExpireTimeout: -1,
	}
}

// SetHint sets a hint value.
func (n *Notification) SetHint(key string, value any) *Notification {
	if n.Hints == nil {
		n.Hints = make(map[string]dbus.Variant)
	}
	n.Hints[key] = dbus.MakeVariant(value)
	return n
}

// SetUrgency sets the urgency hint.
func (n *Notification) SetUrgency(urgency byte) *Notification {
	return n.SetHint("urgency", urgency)
}

// Urgency extracts the urgency hint, UrgencyNormal if unset.
func (n *Notification) Urgency() byte {
	if v, ok := n.Hints["urgency"]; ok {
		if u, ok := v.Value().(byte); ok {
			return u
		}
	}
	return UrgencyNormal
}

// args returns the Notify call arguments in wire order.
func (n *Notification) args() []any {
	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}
	return []any{n.AppName, n.ReplacesID, n.AppIcon, n.Summary, n.Body, actions, hints, n.ExpireTimeout}
}

// NotificationsClient sends notifications to the desktop notification daemon.
type NotificationsClient struct {
	obj dbus.BusObject
}

// NewNotificationsClient creates a client on conn.
func NewNotificationsClient(conn *dbus.Conn) *NotificationsClient {
	return &NotificationsClient{obj: conn.Object(notificationsName, notificationsPath)}
}

// Notify sends n and returns the server-assigned id.
func (c *NotificationsClient) Notify(ctx context.Context, n *Notification) (uint32, error) {
	call := c.obj.CallWithContext(ctx, notificationsInterface+".Notify", 0, n.args()...)
	if call.Err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", call.Err)
	}
	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to decode notification id: %w", err)
	}
	return id, nil
}
