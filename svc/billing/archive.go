package billing

import (
	"context"
	"fmt"
	"path"
	"time"
)

// ObjectPutter stores one object. *file.S3Storage satisfies it.
type ObjectPutter interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// ObjectArchive writes raw payloads under
// webhooks/<provider>/<yyyy>/<mm>/<dd>/<event id>.json.
type ObjectArchive struct {
	store ObjectPutter
	now   func() time.Time
}

func NewObjectArchive(store ObjectPutter) *ObjectArchive {
	return &ObjectArchive{store: store, now: time.Now}
}

func (a *ObjectArchive) Archive(ctx context.Context, provider string, ev *Event) error {
	if ev.ID == "" {
		return fmt.Errorf("archive %s event: missing event id", provider)
	}
	return a.store.Put(ctx, ArchiveKey(provider, ev.ID, a.now()), "application/json", ev.Payload)
}

// ArchiveKey is the object key for an event received at t.
func ArchiveKey(provider, eventID string, t time.Time) string {
	return path.Join("webhooks", provider, t.UTC().Format("2006/01/02"), eventID+".json")
}
