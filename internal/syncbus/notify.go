package syncbus

import (
	"context"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
)

// NotifyingStore publishes an event after every successful mutation of the
// wrapped store. Failed or rejected mutations publish nothing
type NotifyingStore struct {
	store.Store
	bus    *Bus
	source string
}

// NewNotifyingStore wraps s so its mutations are announced on bus. source
// is copied into every event
func NewNotifyingStore(s store.Store, bus *Bus, source string) *NotifyingStore {
	return &NotifyingStore{Store: s, bus: bus, source: source}
}

func (n *NotifyingStore) publish(kind Kind, projectID, taskID string) {
	n.bus.Publish(Event{
		Kind:      kind,
		ProjectID: store.ProjectOrGlobal(projectID),
		TaskID:    taskID,
		Source:    n.source,
	})
}

func (n *NotifyingStore) Create(ctx context.Context, projectID string, in store.NewTask) (*models.Task, error) {
	t, err := n.Store.Create(ctx, projectID, in)
	if err != nil {
		return nil, err
	}
	n.publish(KindCreated, projectID, t.ID)
	return t, nil
}

func (n *NotifyingStore) PatchStatus(ctx context.Context, projectID, taskID, newStatus string) (*models.Task, error) {
	t, err := n.Store.PatchStatus(ctx, projectID, taskID, newStatus)
	if err != nil {
		return nil, err
	}
	n.publish(KindStatusChanged, projectID, taskID)
	return t, nil
}

func (n *NotifyingStore) PatchFields(ctx context.Context, projectID, taskID string, f store.Fields) (*models.Task, error) {
	t, err := n.Store.PatchFields(ctx, projectID, taskID, f)
	if err != nil {
		return nil, err
	}
	n.publish(KindUpdated, projectID, taskID)
	return t, nil
}

func (n *NotifyingStore) Delete(ctx context.Context, projectID, taskID string) error {
	if err := n.Store.Delete(ctx, projectID, taskID); err != nil {
		return err
	}
	n.publish(KindDeleted, projectID, taskID)
	return nil
}

func (n *NotifyingStore) AppendComment(ctx context.Context, projectID, taskID, author, text string) (*models.Comment, error) {
	c, err := n.Store.AppendComment(ctx, projectID, taskID, author, text)
	if err != nil {
		return nil, err
	}
	n.publish(KindCommented, projectID, taskID)
	return c, nil
}
