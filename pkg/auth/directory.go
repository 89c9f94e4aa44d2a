package auth

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/chatsentry/chatsentry/pkg/observability"
)

// DirectoryStore persists the full directory snapshot. Implementations live
// in pkg/storage; Load returns ErrStoreNotExist when nothing has been saved
// yet.
type DirectoryStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Directory is the in-memory copy of the persisted authorized-user records.
// It is owned by the Manager, whose mutex serializes all access; Directory
// does no locking of its own.
//
// Persistence is best-effort: a failed save is logged and swallowed, and
// the in-memory state remains authoritative.
type Directory struct {
	store   DirectoryStore
	log     *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time

	records map[string]UserRecord
}

// NewDirectory creates a directory bound to a store. Call Load before use.
func NewDirectory(store DirectoryStore, log *observability.Logger, metrics *observability.Metrics, now func() time.Time) *Directory {
	if log == nil {
		log = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	if now == nil {
		now = time.Now
	}
	return &Directory{
		store:   store,
		log:     log,
		metrics: metrics,
		now:     now,
		records: make(map[string]UserRecord),
	}
}

// Load reads the persisted snapshot. A missing snapshot seeds the directory
// from the bootstrap admin (when given); a corrupt or unreadable snapshot is
// logged and treated the same way. Load never fails the process.
func (d *Directory) Load(ctx context.Context, bootstrap *BootstrapAdmin) {
	snap, err := d.store.Load(ctx)
	switch {
	case err == nil:
		d.records = make(map[string]UserRecord, len(snap.AuthorizedUsers))
		for id, rec := range snap.AuthorizedUsers {
			d.records[id] = rec
		}
		d.metrics.StorageOperationsTotal.WithLabelValues("load", "ok").Inc()
		d.log.WithField("users", len(d.records)).Info("loaded authorized user directory")
		return
	case errors.Is(err, ErrStoreNotExist):
		d.log.Info("no directory snapshot found, creating default")
	default:
		d.metrics.StorageOperationsTotal.WithLabelValues("load", "error").Inc()
		d.log.WithError(err).Error("failed to load directory, starting from default")
	}

	d.records = make(map[string]UserRecord)
	if bootstrap != nil && bootstrap.UserID != "" {
		d.records[bootstrap.UserID] = UserRecord{
			Name:      bootstrap.Name,
			Email:     bootstrap.Email,
			Role:      RoleAdmin,
			AddedDate: d.now(),
			AddedBy:   "system",
		}
		d.log.WithField("user_id", bootstrap.UserID).Info("seeded bootstrap admin")
	}
	d.persist(ctx)
}

// Reload re-reads the persisted snapshot and replaces the in-memory
// records. Unlike Load there is no fallback: on any read error the current
// records are kept and nothing is persisted, so a bad out-of-band edit
// cannot wipe a good directory.
func (d *Directory) Reload(ctx context.Context) error {
	snap, err := d.store.Load(ctx)
	if err != nil {
		d.metrics.StorageOperationsTotal.WithLabelValues("load", "error").Inc()
		d.log.WithError(err).Error("failed to reload directory, keeping current state")
		return err
	}
	d.records = make(map[string]UserRecord, len(snap.AuthorizedUsers))
	for id, rec := range snap.AuthorizedUsers {
		d.records[id] = rec
	}
	d.metrics.StorageOperationsTotal.WithLabelValues("load", "ok").Inc()
	return nil
}

// persist writes the full snapshot. Failures are logged, never propagated.
func (d *Directory) persist(ctx context.Context) {
	if err := d.store.Save(ctx, d.Export()); err != nil {
		d.metrics.StorageOperationsTotal.WithLabelValues("save", "error").Inc()
		d.log.WithError(err).Error("failed to persist directory, in-memory state remains authoritative")
		return
	}
	d.metrics.StorageOperationsTotal.WithLabelValues("save", "ok").Inc()
}

// Get returns the record for a user id.
func (d *Directory) Get(userID string) (UserRecord, bool) {
	rec, ok := d.records[userID]
	return rec, ok
}

// Len returns the number of authorized users.
func (d *Directory) Len() int {
	return len(d.records)
}

// Add inserts a new record and persists. Returns ErrAlreadyExists when the
// user id is already present.
func (d *Directory) Add(ctx context.Context, userID, name, email string, role Role, addedBy string) error {
	if _, ok := d.records[userID]; ok {
		return ErrAlreadyExists
	}
	d.records[userID] = UserRecord{
		Name:      name,
		Email:     email,
		Role:      role,
		AddedDate: d.now(),
		AddedBy:   addedBy,
	}
	d.persist(ctx)
	return nil
}

// Remove deletes a record and persists. Returns the removed record, or
// ErrNotFound when the user id is absent.
func (d *Directory) Remove(ctx context.Context, userID string) (UserRecord, error) {
	rec, ok := d.records[userID]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	delete(d.records, userID)
	d.persist(ctx)
	return rec, nil
}

// UpdateRole changes a record's role plus audit fields and persists.
// Returns the previous role, or ErrNotFound when the user id is absent.
func (d *Directory) UpdateRole(ctx context.Context, userID string, newRole Role, updatedBy string) (Role, error) {
	rec, ok := d.records[userID]
	if !ok {
		return "", ErrNotFound
	}
	oldRole := rec.Role
	updated := d.now()
	rec.Role = newRole
	rec.LastUpdated = &updated
	rec.UpdatedBy = updatedBy
	d.records[userID] = rec
	d.persist(ctx)
	return oldRole, nil
}

// Export returns a deep-copied snapshot of the directory.
func (d *Directory) Export() *Snapshot {
	snap := &Snapshot{
		AuthorizedUsers: make(map[string]UserRecord, len(d.records)),
		LastUpdated:     d.now(),
	}
	for id, rec := range d.records {
		snap.AuthorizedUsers[id] = rec
	}
	return snap.Clone()
}

// Import merges a snapshot into the directory and persists: records with
// matching ids are overwritten, existing records absent from the snapshot
// are kept. Returns the number of records imported.
func (d *Directory) Import(ctx context.Context, snap *Snapshot) int {
	if snap == nil || len(snap.AuthorizedUsers) == 0 {
		return 0
	}
	for id, rec := range snap.AuthorizedUsers {
		d.records[id] = rec
	}
	d.persist(ctx)
	return len(snap.AuthorizedUsers)
}

// UserIDs returns all directory keys in sorted order.
func (d *Directory) UserIDs() []string {
	ids := make([]string, 0, len(d.records))
	for id := range d.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
