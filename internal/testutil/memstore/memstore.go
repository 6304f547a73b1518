// Package memstore is an in-memory stand-in for the Postgres repositories and
// session store, used by service and handler tests.
package memstore

import (
	"context"
	"iter"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
	"github.com/siddhant-rajhans/ducknest/internal/session"
)

// Store holds every table behind one mutex, the way one database would.
type Store struct {
	mu       sync.Mutex
	fail     error
	seq      int64
	clock    time.Time
	users    map[string]model.User
	listings map[string]model.Listing
	threads  map[string]model.Thread
	messages map[string][]model.Message
	sessions map[string]session.Session
}

func New() *Store {
	return &Store{
		clock:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		users:    map[string]model.User{},
		listings: map[string]model.Listing{},
		threads:  map[string]model.Thread{},
		messages: map[string][]model.Message{},
		sessions: map[string]session.Session{},
	}
}

// FailWith makes every later call return err, simulating a lost database.
// Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// tick returns a strictly increasing timestamp so creation order is observable.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *Store) Users() *Users       { return &Users{s} }
func (s *Store) Listings() *Listings { return &Listings{s} }
func (s *Store) Threads() *Threads   { return &Threads{s} }
func (s *Store) Sessions() *Sessions { return &Sessions{s} }

type Users struct{ s *Store }

func (u *Users) Create(_ context.Context, user *model.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.fail != nil {
		return u.s.fail
	}
	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return apperr.New(apperr.AlreadyRegistered, "email is already registered")
		}
	}
	u.s.users[user.ID] = *user
	return nil
}

func (u *Users) GetByID(_ context.Context, id string) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.fail != nil {
		return model.User{}, u.s.fail
	}
	user, ok := u.s.users[id]
	if !ok {
		return model.User{}, apperr.New(apperr.NotFound, "user not found")
	}
	return user, nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.fail != nil {
		return model.User{}, u.s.fail
	}
	for _, user := range u.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return model.User{}, apperr.New(apperr.NotFound, "user not found")
}

// Delete cascades like the foreign keys in the schema.
func (u *Users) Delete(_ context.Context, id string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.fail != nil {
		return u.s.fail
	}
	if _, ok := u.s.users[id]; !ok {
		return apperr.New(apperr.NotFound, "user not found")
	}
	delete(u.s.users, id)
	for lid, l := range u.s.listings {
		if l.OwnerID == id {
			delete(u.s.listings, lid)
		}
	}
	for tid, t := range u.s.threads {
		_, listingAlive := u.s.listings[t.ListingID]
		if t.HasParticipant(id) || !listingAlive {
			delete(u.s.threads, tid)
			delete(u.s.messages, tid)
		}
	}
	for sid, sess := range u.s.sessions {
		if sess.UserID == id {
			delete(u.s.sessions, sid)
		}
	}
	return nil
}

// Count returns the number of stored users.
func (u *Users) Count() int {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	return len(u.s.users)
}

type Listings struct{ s *Store }

func (l *Listings) Create(_ context.Context, listing *model.Listing) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.fail != nil {
		return l.s.fail
	}
	now := l.s.tick()
	listing.CreatedAt, listing.UpdatedAt = now, now
	l.s.listings[listing.ID] = clone(*listing)
	return nil
}

func (l *Listings) GetByID(_ context.Context, id string) (model.Listing, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.fail != nil {
		return model.Listing{}, l.s.fail
	}
	listing, ok := l.s.listings[id]
	if !ok {
		return model.Listing{}, apperr.New(apperr.NotFound, "listing not found")
	}
	return clone(listing), nil
}

func (l *Listings) Mutate(_ context.Context, id string, fn func(*model.Listing) error) (model.Listing, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.fail != nil {
		return model.Listing{}, l.s.fail
	}
	current, ok := l.s.listings[id]
	if !ok {
		return model.Listing{}, apperr.New(apperr.NotFound, "listing not found")
	}
	next := clone(current)
	if err := fn(&next); err != nil {
		return model.Listing{}, err
	}
	next.UpdatedAt = l.s.tick()
	l.s.listings[id] = clone(next)
	return next, nil
}

// List snapshots matching listings when ranged over, in the repository's order.
func (l *Listings) List(_ context.Context, f model.ListingFilter) iter.Seq2[model.Listing, error] {
	return func(yield func(model.Listing, error) bool) {
		l.s.mu.Lock()
		if l.s.fail != nil {
			err := l.s.fail
			l.s.mu.Unlock()
			yield(model.Listing{}, err)
			return
		}
		var matched []model.Listing
		for _, listing := range l.s.listings {
			if f.Matches(listing) {
				matched = append(matched, clone(listing))
			}
		}
		l.s.mu.Unlock()

		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.Before(matched[j].CreatedAt)
			}
			return matched[i].ID < matched[j].ID
		})
		if f.Offset > 0 {
			matched = matched[min(f.Offset, len(matched)):]
		}
		if f.Limit > 0 && len(matched) > f.Limit {
			matched = matched[:f.Limit]
		}
		for _, listing := range matched {
			if !yield(listing, nil) {
				return
			}
		}
	}
}

type Threads struct{ s *Store }

func (t *Threads) Open(_ context.Context, listingID, seekerID string, check func(model.Listing) error) (model.Thread, bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.fail != nil {
		return model.Thread{}, false, t.s.fail
	}
	listing, ok := t.s.listings[listingID]
	if !ok {
		return model.Thread{}, false, apperr.New(apperr.NotFound, "listing not found")
	}
	if err := check(clone(listing)); err != nil {
		return model.Thread{}, false, err
	}
	for _, th := range t.s.threads {
		if th.ListingID == listingID && th.SeekerID == seekerID {
			return th, false, nil
		}
	}
	th := model.Thread{
		ID:        uuid.NewString(),
		ListingID: listingID,
		ListerID:  listing.OwnerID,
		SeekerID:  seekerID,
		CreatedAt: t.s.tick(),
	}
	t.s.threads[th.ID] = th
	return th, true, nil
}

func (t *Threads) Get(_ context.Context, id string) (model.Thread, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.fail != nil {
		return model.Thread{}, t.s.fail
	}
	th, ok := t.s.threads[id]
	if !ok {
		return model.Thread{}, apperr.New(apperr.NotFound, "thread not found")
	}
	return th, nil
}

func (t *Threads) ListByUser(_ context.Context, userID string) ([]model.Thread, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.fail != nil {
		return nil, t.s.fail
	}
	out := []model.Thread{}
	for _, th := range t.s.threads {
		if th.HasParticipant(userID) {
			out = append(out, th)
		}
	}
	activity := func(th model.Thread) time.Time {
		if th.LastMessageAt != nil {
			return *th.LastMessageAt
		}
		return th.CreatedAt
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := activity(out[i]), activity(out[j])
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *Threads) Append(_ context.Context, m *model.Message, authorize func(model.Thread) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.fail != nil {
		return t.s.fail
	}
	th, ok := t.s.threads[m.ThreadID]
	if !ok {
		return apperr.New(apperr.NotFound, "thread not found")
	}
	if err := authorize(th); err != nil {
		return err
	}
	t.s.seq++
	m.Seq = t.s.seq
	m.CreatedAt = t.s.tick()
	t.s.messages[m.ThreadID] = append(t.s.messages[m.ThreadID], *m)
	th.LastMessageAt = &m.CreatedAt
	t.s.threads[th.ID] = th
	return nil
}

func (t *Threads) Messages(_ context.Context, threadID string) ([]model.Message, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.fail != nil {
		return nil, t.s.fail
	}
	return append([]model.Message{}, t.s.messages[threadID]...), nil
}

type Sessions struct{ s *Store }

func (ss *Sessions) Save(_ context.Context, sess session.Session) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if ss.s.fail != nil {
		return ss.s.fail
	}
	ss.s.sessions[sess.ID] = sess
	return nil
}

func (ss *Sessions) Find(_ context.Context, id string) (session.Session, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if ss.s.fail != nil {
		return session.Session{}, ss.s.fail
	}
	sess, ok := ss.s.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (ss *Sessions) Delete(_ context.Context, id string) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if ss.s.fail != nil {
		return ss.s.fail
	}
	delete(ss.s.sessions, id)
	return nil
}

func (ss *Sessions) DeleteUser(_ context.Context, userID string) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if ss.s.fail != nil {
		return ss.s.fail
	}
	for id, sess := range ss.s.sessions {
		if sess.UserID == userID {
			delete(ss.s.sessions, id)
		}
	}
	return nil
}

func clone(l model.Listing) model.Listing {
	l.Amenities = slices.Clone(l.Amenities)
	if l.Amenities == nil {
		l.Amenities = []string{}
	}
	return l
}
