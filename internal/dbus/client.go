package dbus

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/avsessiond/internal/model"
	"github.com/jmylchreest/avsessiond/internal/store"
)

// DefaultCallTimeout bounds each method call when no timeout is given.
const DefaultCallTimeout = 5 * time.Second

// Client calls the AVSession interface of a running daemon.
type Client struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	timeout time.Duration
}

// Dial opens a private session bus connection to the daemon owning busName.
func Dial(busName string, timeout time.Duration) (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if busName == "" {
		busName = BusName
	}
	c := NewClient(conn.Object(busName, Path), timeout)
	c.conn = conn
	return c, nil
}

// NewClient wraps an existing bus object.
func NewClient(obj dbus.BusObject, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Client{obj: obj, timeout: timeout}
}

// Close closes the connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, args []any, out ...any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
	if call.Err != nil {
		return fromDBusError(call.Err)
	}
	if len(out) == 0 {
		return nil
	}
	if err := call.Store(out...); err != nil {
		return fmt.Errorf("failed to decode %s reply: %w", method, err)
	}
	return nil
}

// Set applies req and makes it the desired state. It returns the new revision.
func (c *Client) Set(ctx context.Context, req model.Request) (string, error) {
	var revision string
	err := c.call(ctx, "Set", []any{RequestToVariants(req)}, &revision)
	return revision, err
}

// TemporaryOverride applies req without touching the desired state. A
// positive restoreAfter schedules a restore.
func (c *Client) TemporaryOverride(ctx context.Context, req model.Request, restoreAfter time.Duration) error {
	return c.call(ctx, "TemporaryOverride", []any{RequestToVariants(req), restoreAfter.Milliseconds()})
}

// SetActive activates or deactivates the session.
func (c *Client) SetActive(ctx context.Context, active bool) error {
	return c.call(ctx, "SetActive", []any{active})
}

// EnableAutoReapply turns enforcement on.
func (c *Client) EnableAutoReapply(ctx context.Context) error {
	return c.call(ctx, "EnableAutoReapply", nil)
}

// DisableAutoReapply turns enforcement off.
func (c *Client) DisableAutoReapply(ctx context.Context) error {
	return c.call(ctx, "DisableAutoReapply", nil)
}

// GetState returns the daemon's snapshot of the session.
func (c *Client) GetState(ctx context.Context) (model.Snapshot, error) {
	var m map[string]dbus.Variant
	if err := c.call(ctx, "GetState", nil, &m); err != nil {
		return model.Snapshot{}, err
	}
	return SnapshotFromVariants(m), nil
}

// GetStatus returns the enforcement flag and the desired configuration.
func (c *Client) GetStatus(ctx context.Context) (Status, error) {
	var (
		st         Status
		acceptedAt int64
		desired    map[string]dbus.Variant
	)
	if err := c.call(ctx, "GetStatus", nil, &st.AutoReapply, &st.HasDesired, &st.Revision, &acceptedAt, &desired); err != nil {
		return Status{}, err
	}
	if st.HasDesired {
		st.AcceptedAt = time.UnixMilli(acceptedAt)
		req, err := RequestFromVariants(desired)
		if err != nil {
			return Status{}, fmt.Errorf("failed to decode desired configuration: %w", err)
		}
		st.Desired = req
	}
	return st, nil
}

// GetHistory returns up to limit history entries, newest first.
func (c *Client) GetHistory(ctx context.Context, limit int) ([]store.Entry, error) {
	if limit < 0 {
		limit = 0
	}
	var wire []HistoryEntry
	if err := c.call(ctx, "GetHistory", []any{uint32(limit)}, &wire); err != nil {
		return nil, err
	}
	entries := make([]store.Entry, len(wire))
	for i, w := range wire {
		entries[i] = w.Entry()
	}
	return entries, nil
}

// InjectEvent asks the daemon to deliver a simulated service event.
func (c *Client) InjectEvent(ctx context.Context, kind string) error {
	return c.call(ctx, "InjectEvent", []any{kind})
}
