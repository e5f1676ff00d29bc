package negotiation

import (
	"context"
	"sort"
	"time"

	negotiationRepo "molbhav/database/repository/negotiation"
	providerRepo "molbhav/database/repository/provider"
	"molbhav/models"
	"molbhav/services/matching"

	"go.mongodb.org/mongo-driver/bson"
)

// In-memory stand-ins for the Mongo repositories and the messaging, queue and
// notification sinks. They mirror the guarded-update and monotone-counter
// semantics of the real implementations.

type fakeRequestRepo struct {
	requests map[string]*models.ServiceRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: map[string]*models.ServiceRequest{}}
}

func (f *fakeRequestRepo) Create(req *models.ServiceRequest) error {
	c := *req
	f.requests[req.ID] = &c
	return nil
}

func (f *fakeRequestRepo) GetByID(id string) (*models.ServiceRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (f *fakeRequestRepo) UpdateStatus(id string, allowedFrom []string, to string) (bool, error) {
	r, ok := f.requests[id]
	if !ok {
		return false, nil
	}
	for _, from := range allowedFrom {
		if r.Status == from {
			r.Status = to
			r.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestRepo) SetCounters(id string, providersContacted, offersReceived int) error {
	r, ok := f.requests[id]
	if !ok {
		return nil
	}
	if providersContacted > r.ProvidersContacted {
		r.ProvidersContacted = providersContacted
	}
	if offersReceived > r.OffersReceived {
		r.OffersReceived = offersReceived
	}
	return nil
}

func (f *fakeRequestRepo) SetSelected(id, sessionID string) (bool, error) {
	r, ok := f.requests[id]
	if !ok {
		return false, nil
	}
	if r.SelectedSessionID != "" {
		return false, nil
	}
	if r.Status != models.RequestStatusNegotiating && r.Status != models.RequestStatusOffersReady {
		return false, nil
	}
	r.SelectedSessionID = sessionID
	r.Status = models.RequestStatusAccepted
	r.UpdatedAt = time.Now()
	return true, nil
}

type fakeSessionRepo struct {
	sessions map[string]*models.NegotiationSession
	// conflicts rejects that many guarded writes to exercise retry paths.
	conflicts int
	// beforeUpdate runs once at the next guarded write, simulating a
	// concurrent writer slipping in between read and write.
	beforeUpdate func()
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*models.NegotiationSession{}}
}

func cloneSession(s *models.NegotiationSession) *models.NegotiationSession {
	c := *s
	c.ConversationHistory = append([]models.ConversationMessage(nil), s.ConversationHistory...)
	if s.CurrentOffer != nil {
		v := *s.CurrentOffer
		c.CurrentOffer = &v
	}
	if s.CounterOffer != nil {
		v := *s.CounterOffer
		c.CounterOffer = &v
	}
	return &c
}

func (f *fakeSessionRepo) Create(s *models.NegotiationSession) error {
	f.sessions[s.ID] = cloneSession(s)
	return nil
}

func (f *fakeSessionRepo) GetByID(id string) (*models.NegotiationSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (f *fakeSessionRepo) GetByRequest(requestID string) ([]models.NegotiationSession, error) {
	var out []models.NegotiationSession
	for _, s := range f.sessions {
		if s.RequestID == requestID {
			out = append(out, *cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSessionRepo) GetAgreedByRequest(requestID string) ([]models.NegotiationSession, error) {
	var out []models.NegotiationSession
	for _, s := range f.sessions {
		if s.RequestID == requestID && s.Agreed() {
			out = append(out, *cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return *out[i].CurrentOffer < *out[j].CurrentOffer
	})
	return out, nil
}

func (f *fakeSessionRepo) FindActiveByIdentity(identity string) ([]models.NegotiationSession, error) {
	var out []models.NegotiationSession
	for _, s := range f.sessions {
		if s.ProviderIdentity == identity && s.Status == models.SessionStatusActive {
			out = append(out, *cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSessionRepo) HasActive(requestID, identity string) (bool, error) {
	for _, s := range f.sessions {
		if s.RequestID == requestID && s.ProviderIdentity == identity && s.Status == models.SessionStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSessionRepo) UpdateGuarded(s *models.NegotiationSession) (bool, error) {
	if f.beforeUpdate != nil {
		hook := f.beforeUpdate
		f.beforeUpdate = nil
		hook()
	}
	if f.conflicts > 0 {
		f.conflicts--
		return false, nil
	}
	stored, ok := f.sessions[s.ID]
	if !ok || stored.Status != models.SessionStatusActive || stored.Version != s.Version {
		return false, nil
	}
	s.Version++
	s.UpdatedAt = time.Now()
	f.sessions[s.ID] = cloneSession(s)
	return true, nil
}

func (f *fakeSessionRepo) CountsByRequest(requestID string) (negotiationRepo.SessionCounts, error) {
	var counts negotiationRepo.SessionCounts
	for _, s := range f.sessions {
		if s.RequestID != requestID {
			continue
		}
		counts.Contacted++
		if s.Agreed() {
			counts.Agreed++
		}
		if s.Status == models.SessionStatusActive {
			counts.Active++
		}
	}
	return counts, nil
}

func (f *fakeSessionRepo) ExpireActive(requestID string, now time.Time, force bool) (int64, error) {
	var n int64
	for _, s := range f.sessions {
		if s.RequestID != requestID || s.Status != models.SessionStatusActive {
			continue
		}
		if !force && s.ExpiresAt.After(now) {
			continue
		}
		s.Status = models.SessionStatusExpired
		s.Outcome = models.OutcomeTimeout
		s.Version++
		s.UpdatedAt = now
		n++
	}
	return n, nil
}

func (f *fakeSessionRepo) CancelActive(requestID string) (int64, error) {
	var n int64
	for _, s := range f.sessions {
		if s.RequestID != requestID || s.Status != models.SessionStatusActive {
			continue
		}
		s.Status = models.SessionStatusFailed
		s.Outcome = models.OutcomeCancelled
		s.Version++
		s.UpdatedAt = time.Now()
		n++
	}
	return n, nil
}

type fakeBookingRepo struct {
	bookings map[string]*models.Booking
	err      error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[string]*models.Booking{}}
}

func (f *fakeBookingRepo) Create(b *models.Booking) error {
	if f.err != nil {
		return f.err
	}
	c := *b
	f.bookings[b.ID] = &c
	return nil
}

func (f *fakeBookingRepo) GetByRequest(requestID string) (*models.Booking, error) {
	for _, b := range f.bookings {
		if b.RequestID == requestID {
			c := *b
			return &c, nil
		}
	}
	return nil, nil
}

type fakeProviderRepo struct {
	providers map[string]*models.Provider
}

func newFakeProviderRepo() *fakeProviderRepo {
	return &fakeProviderRepo{providers: map[string]*models.Provider{}}
}

func (f *fakeProviderRepo) GetByIDWithProjection(id string, projection bson.M) (*models.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (f *fakeProviderRepo) SearchNearby(criteria providerRepo.ProviderSearchCriteria) ([]models.Provider, error) {
	return nil, nil
}

type fakeMatcher struct {
	result matching.MatchResult
	err    error
}

func (f *fakeMatcher) MatchProviders(req *models.ServiceRequest) (matching.MatchResult, error) {
	if f.err != nil {
		return matching.MatchResult{}, f.err
	}
	return f.result, nil
}

type sentMessage struct {
	Identity string
	Text     string
	Actions  bool
}

type fakeSender struct {
	sent    []sentMessage
	failFor map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: map[string]error{}}
}

func (f *fakeSender) Send(ctx context.Context, identity, text string) error {
	if err := f.failFor[identity]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{Identity: identity, Text: text})
	return nil
}

func (f *fakeSender) SendWithActions(ctx context.Context, identity, text string) error {
	if err := f.failFor[identity]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{Identity: identity, Text: text, Actions: true})
	return nil
}

func (f *fakeSender) sentTo(identity string) []sentMessage {
	var out []sentMessage
	for _, m := range f.sent {
		if m.Identity == identity {
			out = append(out, m)
		}
	}
	return out
}

type sentNotice struct {
	Target  string
	ID      string
	Type    string
	Title   string
	Message string
}

type fakeNotifier struct {
	sent []sentNotice
}

func (f *fakeNotifier) NotifyUser(ctx context.Context, userID, ntype, title, message string, data map[string]string) error {
	f.sent = append(f.sent, sentNotice{Target: models.TargetUser, ID: userID, Type: ntype, Title: title, Message: message})
	return nil
}

func (f *fakeNotifier) NotifyProvider(ctx context.Context, providerID, ntype, title, message string, data map[string]string) error {
	f.sent = append(f.sent, sentNotice{Target: models.TargetProvider, ID: providerID, Type: ntype, Title: title, Message: message})
	return nil
}

func (f *fakeNotifier) ListForUser(userID string, limit int64) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeNotifier) MarkRead(id, userID string) (bool, error) { return false, nil }

func (f *fakeNotifier) countByType(ntype string) int {
	n := 0
	for _, s := range f.sent {
		if s.Type == ntype {
			n++
		}
	}
	return n
}

type fakeDispatcher struct {
	fanouts     []string
	finalizes   []string
	finalizeAts []time.Time
	checks      []string
}

func (f *fakeDispatcher) EnqueueFanout(requestID string) error {
	f.fanouts = append(f.fanouts, requestID)
	return nil
}

func (f *fakeDispatcher) ScheduleFinalize(requestID string, at time.Time) error {
	f.finalizes = append(f.finalizes, requestID)
	f.finalizeAts = append(f.finalizeAts, at)
	return nil
}

func (f *fakeDispatcher) EnqueueFinalizeCheck(requestID string) error {
	f.checks = append(f.checks, requestID)
	return nil
}

type fakeRephraser struct {
	out   string
	err   error
	calls int
}

func (f *fakeRephraser) Rephrase(ctx context.Context, instruction, canonical string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

// testEnv wires a DefaultNegotiationService onto the fakes.
type testEnv struct {
	requests   *fakeRequestRepo
	sessions   *fakeSessionRepo
	providers  *fakeProviderRepo
	bookings   *fakeBookingRepo
	matcher    *fakeMatcher
	sender     *fakeSender
	notifier   *fakeNotifier
	dispatcher *fakeDispatcher
	svc        *DefaultNegotiationService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		requests:   newFakeRequestRepo(),
		sessions:   newFakeSessionRepo(),
		providers:  newFakeProviderRepo(),
		bookings:   newFakeBookingRepo(),
		matcher:    &fakeMatcher{},
		sender:     newFakeSender(),
		notifier:   &fakeNotifier{},
		dispatcher: &fakeDispatcher{},
	}
	env.svc = &DefaultNegotiationService{
		Requests:   env.requests,
		Sessions:   env.sessions,
		Providers:  env.providers,
		Bookings:   env.bookings,
		Matcher:    env.matcher,
		Messenger:  env.sender,
		Notifier:   env.notifier,
		Dispatcher: env.dispatcher,
	}
	return env
}

func (env *testEnv) addRequest(id, customerID, status string, budget float64) *models.ServiceRequest {
	req := &models.ServiceRequest{
		ID:                id,
		CustomerID:        customerID,
		Description:       "fix the kitchen sink",
		ServiceCategories: []string{"plumbing"},
		LocationGeo:       models.GeoPoint{Type: "Point", Coordinates: []float64{77.0, 28.0}},
		CustomerBudget:    budget,
		Status:            status,
		CreatedAt:         time.Now().Add(-time.Hour),
		UpdatedAt:         time.Now().Add(-time.Hour),
	}
	env.requests.requests[id] = req
	return req
}

func (env *testEnv) addSession(id, requestID, providerID, identity string, maxPrice, minAcceptable float64) *models.NegotiationSession {
	sess := &models.NegotiationSession{
		ID:               id,
		RequestID:        requestID,
		ProviderID:       providerID,
		ProviderIdentity: identity,
		MaxPrice:         maxPrice,
		MinAcceptable:    minAcceptable,
		Status:           models.SessionStatusActive,
		ExpiresAt:        time.Now().Add(time.Hour),
		CreatedAt:        time.Now().Add(-time.Minute),
		UpdatedAt:        time.Now().Add(-time.Minute),
	}
	env.sessions.sessions[id] = sess
	return sess
}

func testProviderRecord(id, identity string) models.Provider {
	return models.Provider{
		ID: id,
		Profile: models.ProviderProfile{
			Name:            "Provider " + id,
			Status:          models.ProviderStatusActive,
			Verified:        true,
			ProfileComplete: true,
			Rating:          4.5,
			LocationGeo:     models.GeoPoint{Type: "Point", Coordinates: []float64{77.01, 28.01}},
		},
		Services:          []string{"plumbing"},
		MessagingIdentity: identity,
	}
}
