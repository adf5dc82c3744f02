package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"talentdesk/internal/common"
	"talentdesk/internal/models"
	"talentdesk/internal/repositories"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the database. Every method runs
// under one mutex, which gives the same all-or-nothing behaviour as the
// conditional statements and unique indexes it replaces. WithinTx snapshots
// the state and restores it when fn fails.
type memStore struct {
	mu         sync.Mutex
	tenants    map[uuid.UUID]models.Tenant
	identities map[uuid.UUID]models.Identity
	jobs       map[uuid.UUID]models.Job
	guests     map[uuid.UUID]models.GuestApplication
	apps       map[uuid.UUID]models.Application
	logs       []models.ApplicationLog
	notes      []models.ApplicationNote
	edits      []models.NoteEdit

	failIdentityCreate error
}

func newMemStore() *memStore {
	return &memStore{
		tenants:    map[uuid.UUID]models.Tenant{},
		identities: map[uuid.UUID]models.Identity{},
		jobs:       map[uuid.UUID]models.Job{},
		guests:     map[uuid.UUID]models.GuestApplication{},
		apps:       map[uuid.UUID]models.Application{},
	}
}

type memSnapshot struct {
	tenants    map[uuid.UUID]models.Tenant
	identities map[uuid.UUID]models.Identity
	jobs       map[uuid.UUID]models.Job
	guests     map[uuid.UUID]models.GuestApplication
	apps       map[uuid.UUID]models.Application
	logs       []models.ApplicationLog
	notes      []models.ApplicationNote
	edits      []models.NoteEdit
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	snap := memSnapshot{
		tenants:    cloneMap(m.tenants),
		identities: cloneMap(m.identities),
		jobs:       cloneMap(m.jobs),
		guests:     cloneMap(m.guests),
		apps:       cloneMap(m.apps),
		logs:       append([]models.ApplicationLog(nil), m.logs...),
		notes:      append([]models.ApplicationNote(nil), m.notes...),
		edits:      append([]models.NoteEdit(nil), m.edits...),
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.tenants, m.identities, m.jobs = snap.tenants, snap.identities, snap.jobs
		m.guests, m.apps = snap.guests, snap.apps
		m.logs, m.notes, m.edits = snap.logs, snap.notes, snap.edits
		m.mu.Unlock()
		return err
	}
	return nil
}

// passthroughTx runs fn without isolation, for concurrent tests.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// commitLostTx applies fn and then reports a failed commit, the way a
// connection dropped during COMMIT leaves the client unsure of the outcome.
type commitLostTx struct {
	inner interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}
}

func (c commitLostTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.inner.WithinTx(ctx, fn); err != nil {
		return err
	}
	return fmt.Errorf("commit transaction: %w", errors.New("connection reset by peer"))
}

type txMarker struct{}

// markingTx tags the context handed to fn so mocks can tell transactional
// calls apart.
type markingTx struct {
	calls int
}

func (m *markingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(context.WithValue(ctx, txMarker{}, true))
}

// serialTx runs whole transactions on the store one at a time, so writes
// made before a failure are rolled back without clobbering other callers.
// Not reentrant.
type serialTx struct {
	mu    sync.Mutex
	store *memStore
}

func (t *serialTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.WithinTx(ctx, fn)
}

func (m *memStore) applicationsFor(jobID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.apps {
		if a.JobID == jobID {
			n++
		}
	}
	return n
}

func (m *memStore) activeIdentities(tenantID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, identity := range m.identities {
		if identity.IsActive && identity.TenantID != nil && *identity.TenantID == tenantID {
			n++
		}
	}
	return n
}

func (m *memStore) tenantRepo() repositories.TenantRepository         { return memTenants{m} }
func (m *memStore) identityRepo() repositories.IdentityRepository     { return memIdentities{m} }
func (m *memStore) jobRepo() repositories.JobRepository               { return memJobs{m} }
func (m *memStore) guestRepo() repositories.GuestApplicationRepository { return memGuests{m} }
func (m *memStore) appRepo() repositories.ApplicationRepository       { return memApps{m} }

type memTenants struct{ s *memStore }

func (r memTenants) Create(ctx context.Context, tenant *models.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tenants {
		if t.Subdomain == tenant.Subdomain {
			return common.ErrAlreadyExists
		}
	}
	tenant.CreatedAt, tenant.UpdatedAt = time.Now(), time.Now()
	r.s.tenants[tenant.ID] = *tenant
	return nil
}

func (r memTenants) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tenants[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (r memTenants) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tenants {
		if t.Subdomain == subdomain {
			return &t, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memTenants) Update(ctx context.Context, tenant *models.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tenants[tenant.ID]
	if !ok {
		return common.ErrNotFound
	}
	t.Name, t.MaxIdentities, t.IsActive = tenant.Name, tenant.MaxIdentities, tenant.IsActive
	r.s.tenants[t.ID] = t
	tenant.CurrentIdentityCount = t.CurrentIdentityCount
	return nil
}

func (r memTenants) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tenants[id]; !ok {
		return common.ErrNotFound
	}
	for jobID, job := range r.s.jobs {
		if job.TenantID != id {
			continue
		}
		for appID, app := range r.s.apps {
			if app.JobID == jobID {
				delete(r.s.apps, appID)
			}
		}
		for guestID, guest := range r.s.guests {
			if guest.JobID == jobID {
				delete(r.s.guests, guestID)
			}
		}
		delete(r.s.jobs, jobID)
	}
	for identityID, identity := range r.s.identities {
		if identity.TenantID != nil && *identity.TenantID == id {
			delete(r.s.identities, identityID)
		}
	}
	delete(r.s.tenants, id)
	return nil
}

func (r memTenants) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Tenant{}
	for _, t := range r.s.tenants {
		t := t
		out = append(out, &t)
	}
	return out, nil
}

func (r memTenants) ReserveIdentitySlot(ctx context.Context, id uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tenants[id]
	switch {
	case !ok:
		return 0, common.ErrNotFound
	case !t.IsActive:
		return 0, common.ErrForbidden
	case t.CurrentIdentityCount >= t.MaxIdentities:
		return 0, common.ErrQuotaExceeded
	}
	t.CurrentIdentityCount++
	r.s.tenants[id] = t
	return t.CurrentIdentityCount, nil
}

func (r memTenants) ReleaseIdentitySlot(ctx context.Context, id uuid.UUID) (int, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tenants[id]
	if !ok {
		return 0, false, common.ErrNotFound
	}
	if t.CurrentIdentityCount == 0 {
		return 0, true, nil
	}
	t.CurrentIdentityCount--
	r.s.tenants[id] = t
	return t.CurrentIdentityCount, false, nil
}

type memIdentities struct{ s *memStore }

func sameScope(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r memIdentities) findByEmail(tenantID *uuid.UUID, email string) (models.Identity, bool) {
	for _, i := range r.s.identities {
		if sameScope(i.TenantID, tenantID) && strings.EqualFold(i.Email, email) {
			return i, true
		}
	}
	return models.Identity{}, false
}

func (r memIdentities) Create(ctx context.Context, identity *models.Identity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failIdentityCreate != nil {
		return r.s.failIdentityCreate
	}
	if _, ok := r.findByEmail(identity.TenantID, identity.Email); ok {
		return common.ErrDuplicateIdentity
	}
	identity.CreatedAt, identity.UpdatedAt = time.Now(), time.Now()
	r.s.identities[identity.ID] = *identity
	return nil
}

func (r memIdentities) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.identities[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &i, nil
}

func (r memIdentities) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	return r.GetByID(ctx, id)
}

func (r memIdentities) GetByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (*models.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.findByEmail(tenantID, email)
	if !ok {
		return nil, common.ErrNotFound
	}
	return &i, nil
}

func (r memIdentities) ExistsByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.findByEmail(tenantID, email)
	return ok, nil
}

func (r memIdentities) List(ctx context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Identity{}
	for _, i := range r.s.identities {
		if sameScope(i.TenantID, tenantID) {
			i := i
			out = append(out, &i)
		}
	}
	return out, nil
}

func (r memIdentities) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.identities[id]
	if !ok || i.IsActive == active {
		return false, nil
	}
	i.IsActive = active
	r.s.identities[id] = i
	return true, nil
}

func (r memIdentities) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.identities[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.identities, id)
	return nil
}

type memJobs struct{ s *memStore }

func (r memJobs) Create(ctx context.Context, job *models.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job.CreatedAt, job.UpdatedAt = time.Now(), time.Now()
	r.s.jobs[job.ID] = *job
	return nil
}

func (r memJobs) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &j, nil
}

func (r memJobs) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Job{}
	for _, j := range r.s.jobs {
		if j.TenantID == tenantID {
			j := j
			out = append(out, &j)
		}
	}
	return out, nil
}

func (r memJobs) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	j.Status = status
	r.s.jobs[id] = j
	return &j, nil
}

func (r memJobs) ReserveApplicationSlot(ctx context.Context, id uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return 0, common.ErrNotFound
	}
	if j.Status != models.JobStatusPublished ||
		(j.Deadline != nil && !j.Deadline.After(time.Now())) ||
		(j.MaxApplications != nil && j.ApplicationCount >= *j.MaxApplications) {
		return 0, common.ErrJobUnavailable
	}
	j.ApplicationCount++
	r.s.jobs[id] = j
	return j.ApplicationCount, nil
}

type memGuests struct{ s *memStore }

func (r memGuests) Create(ctx context.Context, guest *models.GuestApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.guests {
		if g.JobID == guest.JobID && strings.EqualFold(g.CandidateInfo.Email, guest.CandidateInfo.Email) {
			return common.ErrDuplicateApplication
		}
		if g.TrackingToken == guest.TrackingToken {
			return common.ErrDuplicateApplication
		}
	}
	guest.CreatedAt = time.Now()
	r.s.guests[guest.ID] = *guest
	return nil
}

func (r memGuests) GetByToken(ctx context.Context, token string) (*models.GuestApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.guests {
		if g.TrackingToken == token {
			return &g, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memGuests) GetByTokenForUpdate(ctx context.Context, token string) (*models.GuestApplication, error) {
	return r.GetByToken(ctx, token)
}

func (r memGuests) MarkConverted(ctx context.Context, id, identityID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.guests[id]
	if !ok || g.ConvertedToUser {
		return common.ErrAlreadyConverted
	}
	now := time.Now()
	g.ConvertedToUser, g.ConvertedUserID, g.ConvertedAt = true, &identityID, &now
	r.s.guests[id] = g
	return nil
}

type memApps struct{ s *memStore }

func (r memApps) ExistsForApplicant(ctx context.Context, jobID uuid.UUID, candidateID *uuid.UUID, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.apps {
		if a.JobID != jobID {
			continue
		}
		if ref, ok := a.Applicant.(models.RegisteredRef); ok && candidateID != nil && ref.IdentityID == *candidateID {
			return true, nil
		}
		if strings.EqualFold(a.Snapshot.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r memApps) Create(ctx context.Context, app *models.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.apps {
		if a.JobID == app.JobID && (a.Applicant == app.Applicant || strings.EqualFold(a.Snapshot.Email, app.Snapshot.Email)) {
			return common.ErrDuplicateApplication
		}
	}
	app.CreatedAt, app.UpdatedAt = time.Now(), time.Now()
	stored := *app
	stored.Notes, stored.Logs = nil, nil
	r.s.apps[app.ID] = stored
	return nil
}

func (r memApps) load(id uuid.UUID) (*models.Application, error) {
	a, ok := r.s.apps[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	a.TenantID = r.s.jobs[a.JobID].TenantID
	return &a, nil
}

func (r memApps) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.load(id)
}

func (r memApps) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return r.GetByID(ctx, id)
}

func (r memApps) GetByGuestID(ctx context.Context, guestApplicationID uuid.UUID) (*models.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, a := range r.s.apps {
		if a.Applicant == (models.GuestRef{GuestApplicationID: guestApplicationID}) {
			return r.load(id)
		}
	}
	return nil, common.ErrNotFound
}

func (r memApps) ListByJob(ctx context.Context, jobID uuid.UUID, limit, offset int) ([]*models.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Application{}
	for id, a := range r.s.apps {
		if a.JobID == jobID {
			app, _ := r.load(id)
			out = append(out, app)
		}
	}
	return out, nil
}

func (r memApps) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apps[id]
	if !ok {
		return common.ErrNotFound
	}
	a.Status = status
	r.s.apps[id] = a
	return nil
}

func (r memApps) RelinkGuest(ctx context.Context, guestApplicationID, candidateID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, a := range r.s.apps {
		if a.Applicant == (models.GuestRef{GuestApplicationID: guestApplicationID}) {
			a.Applicant = models.RegisteredRef{IdentityID: candidateID}
			r.s.apps[id] = a
			n++
		}
	}
	return n, nil
}

func (r memApps) AppendLog(ctx context.Context, entry *models.ApplicationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.CreatedAt = time.Now()
	r.s.logs = append(r.s.logs, *entry)
	return nil
}

func (r memApps) ListLogs(ctx context.Context, applicationID uuid.UUID) ([]*models.ApplicationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.ApplicationLog{}
	for _, l := range r.s.logs {
		if l.ApplicationID == applicationID {
			l := l
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r memApps) AppendNote(ctx context.Context, note *models.ApplicationNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	index := 0
	for _, n := range r.s.notes {
		if n.ApplicationID == note.ApplicationID {
			index++
		}
	}
	note.Index, note.CreatedAt = index, time.Now()
	stored := *note
	stored.History = nil
	r.s.notes = append(r.s.notes, stored)
	return nil
}

func (r memApps) GetNoteForUpdate(ctx context.Context, applicationID uuid.UUID, index int) (*models.ApplicationNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notes {
		if n.ApplicationID == applicationID && n.Index == index {
			return &n, nil
		}
	}
	return nil, fmt.Errorf("note %d: %w", index, common.ErrNotFound)
}

func (r memApps) UpdateNoteText(ctx context.Context, note *models.ApplicationNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, n := range r.s.notes {
		if n.ID == note.ID {
			r.s.notes[i].Text, r.s.notes[i].EditedBy, r.s.notes[i].EditedAt = note.Text, note.EditedBy, note.EditedAt
		}
	}
	return nil
}

func (r memApps) AppendNoteEdit(ctx context.Context, edit *models.NoteEdit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.edits = append(r.s.edits, *edit)
	return nil
}

func (r memApps) ListNotes(ctx context.Context, applicationID uuid.UUID) ([]*models.ApplicationNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.ApplicationNote{}
	for _, n := range r.s.notes {
		if n.ApplicationID != applicationID {
			continue
		}
		n := n
		n.History = []*models.NoteEdit{}
		for _, e := range r.s.edits {
			if e.NoteID == n.ID {
				e := e
				n.History = append(n.History, &e)
			}
		}
		out = append(out, &n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}
