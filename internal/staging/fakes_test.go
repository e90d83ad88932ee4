package staging_test

import (
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"snapstage-backend/internal/database"
	"snapstage-backend/internal/imaging"
	"snapstage-backend/internal/models"
	"snapstage-backend/internal/replicate"
	"snapstage-backend/internal/staging"
)

// fakeStore is an in-memory Store mirroring the conditional-update semantics
// of the SQL client.
type fakeStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.StagingRequest
	outputs  map[string]*models.StagingOutput
	projects map[uuid.UUID]*models.Project
	profiles map[uuid.UUID]*models.Profile
	audits   []string

	createErr       error
	markHdQueuedErr error
	resetErr        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests: make(map[uuid.UUID]*models.StagingRequest),
		outputs:  make(map[string]*models.StagingOutput),
		projects: make(map[uuid.UUID]*models.Project),
		profiles: make(map[uuid.UUID]*models.Profile),
	}
}

func outputKey(requestID uuid.UUID, outputType string) string {
	return requestID.String() + "/" + outputType
}

func (s *fakeStore) CreateStagingRequest(req *models.StagingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.requests {
		if existing.ProjectID == req.ProjectID && existing.OptionsHash == req.OptionsHash &&
			existing.Status != models.StatusHdReady && existing.Status != models.StatusFailed {
			return database.ErrConflict
		}
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	copied := *req
	s.requests[req.ID] = &copied
	return nil
}

func (s *fakeStore) GetStagingRequest(requestID, userID uuid.UUID) (*models.StagingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok || req.UserID != userID {
		return nil, database.ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (s *fakeStore) FindActiveStagingRequest(projectID uuid.UUID, optionsHash string) (*models.StagingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requests {
		if req.ProjectID == projectID && req.OptionsHash == optionsHash &&
			req.Status != models.StatusHdReady && req.Status != models.StatusFailed {
			copied := *req
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeStore) TransitionStatus(requestID uuid.UUID, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok || req.Status != from {
		return database.ErrConflict
	}
	req.Status = to
	req.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) MarkFailed(requestID uuid.UUID, errorMessage string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok || req.Status == models.StatusFailed || req.Status == models.StatusHdReady {
		return false, nil
	}
	req.Status = models.StatusFailed
	req.ErrorMessage.String = errorMessage
	req.ErrorMessage.Valid = true
	req.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakeStore) SetPreviewJobID(requestID uuid.UUID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.requests[requestID]; ok {
		req.PreviewJobID.String = jobID
		req.PreviewJobID.Valid = true
	}
	return nil
}

func (s *fakeStore) SetHdJobID(requestID uuid.UUID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.requests[requestID]; ok {
		req.HdJobID.String = jobID
		req.HdJobID.Valid = true
	}
	return nil
}

func (s *fakeStore) MarkApproved(requestID, approverID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok || req.Status != models.StatusPreviewReady {
		return database.ErrConflict
	}
	req.Status = models.StatusApproved
	req.ApprovedAt.Time = time.Now()
	req.ApprovedAt.Valid = true
	req.ApprovedBy.UUID = approverID
	req.ApprovedBy.Valid = true
	return nil
}

func (s *fakeStore) MarkHdQueued(requestID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markHdQueuedErr != nil {
		return s.markHdQueuedErr
	}
	req, ok := s.requests[requestID]
	if !ok || req.Status != models.StatusApproved || req.HdCreditDeducted {
		return database.ErrConflict
	}
	req.Status = models.StatusHdGenerating
	req.HdCreditDeducted = true
	req.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) RevertHdQueued(requestID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok || req.Status != models.StatusHdGenerating {
		return nil
	}
	req.Status = models.StatusApproved
	req.HdCreditDeducted = false
	req.HdJobID = sql.NullString{}
	return nil
}

func (s *fakeStore) ResetForRegeneration(requestID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetErr != nil {
		return 0, s.resetErr
	}
	req, ok := s.requests[requestID]
	if !ok || req.ApprovedAt.Valid ||
		(req.Status != models.StatusPreviewReady && req.Status != models.StatusFailed) {
		return 0, database.ErrConflict
	}
	req.Status = models.StatusPreviewGenerating
	req.PreviewRegenCount++
	req.ErrorMessage.Valid = false
	req.PreviewJobID.Valid = false
	return req.PreviewRegenCount, nil
}

func (s *fakeStore) CreateStagingOutput(out *models.StagingOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *out
	s.outputs[outputKey(out.RequestID, out.OutputType)] = &copied
	return nil
}

func (s *fakeStore) GetStagingOutput(requestID uuid.UUID, outputType string) (*models.StagingOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.outputs[outputKey(requestID, outputType)]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *out
	return &copied, nil
}

func (s *fakeStore) DeleteStagingOutput(requestID uuid.UUID, outputType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outputs, outputKey(requestID, outputType))
	return nil
}

func (s *fakeStore) UpdateStagingOutputURL(outputID uuid.UUID, url string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, out := range s.outputs {
		if out.ID == outputID {
			out.URL = url
			out.ExpiresAt.Time = expiresAt
			out.ExpiresAt.Valid = true
		}
	}
	return nil
}

func (s *fakeStore) FindRefundCandidates(stuckFor time.Duration) ([]models.StagingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-stuckFor)
	var candidates []models.StagingRequest
	for _, req := range s.requests {
		if !req.HdCreditDeducted {
			continue
		}
		if _, ok := s.outputs[outputKey(req.ID, models.OutputHd)]; ok {
			continue
		}
		if req.Status == models.StatusFailed ||
			(req.Status == models.StatusHdGenerating && req.UpdatedAt.Before(cutoff)) {
			candidates = append(candidates, *req)
		}
	}
	return candidates, nil
}

func (s *fakeStore) ClearHdCreditFlag(requestID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok || !req.HdCreditDeducted {
		return false, nil
	}
	req.HdCreditDeducted = false
	return true, nil
}

func (s *fakeStore) GetProject(projectID, userID uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok || project.UserID != userID {
		return nil, database.ErrNotFound
	}
	copied := *project
	return &copied, nil
}

func (s *fakeStore) UpdateProjectStatus(projectID uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if project, ok := s.projects[projectID]; ok {
		project.Status = status
	}
	return nil
}

func (s *fakeStore) GetProfile(userID uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (s *fakeStore) InsertAuditLog(userID uuid.UUID, event, resourceID string, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, event)
	return nil
}

func (s *fakeStore) request(requestID uuid.UUID) *models.StagingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.requests[requestID]
	return &copied
}

func (s *fakeStore) seedRequest(req *models.StagingRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = time.Now()
	}
	s.requests[req.ID] = req
}

// fakeLedger tracks a single balance with every mutation recorded.
type fakeLedger struct {
	mu           sync.Mutex
	balance      int
	debits       int
	refunds      int
	descriptions []string
	debitErr     error
}

func (l *fakeLedger) DebitCredits(userID uuid.UUID, amount int, projectID uuid.NullUUID, description string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.debitErr != nil {
		return 0, l.debitErr
	}
	if l.balance < amount {
		return l.balance, database.ErrInsufficientCredits
	}
	l.balance -= amount
	l.debits++
	l.descriptions = append(l.descriptions, description)
	return l.balance, nil
}

func (l *fakeLedger) CreditCredits(userID uuid.UUID, amount int, projectID uuid.NullUUID, description string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance += amount
	l.refunds++
	l.descriptions = append(l.descriptions, description)
	return l.balance, nil
}

type fakeLimiter struct {
	allowed   bool
	remaining int
}

func (f *fakeLimiter) AllowRegeneration(userID uuid.UUID) (bool, int, error) {
	return f.allowed, f.remaining, nil
}

// fakeJobs serves scripted prediction sequences per job id. The last entry
// repeats once the sequence is exhausted.
type fakeJobs struct {
	mu          sync.Mutex
	nextID      int
	submitted   []string
	submitErr   error
	predictions map[string][]*replicate.Prediction
	cursor      map[string]int
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		predictions: make(map[string][]*replicate.Prediction),
		cursor:      make(map[string]int),
	}
}

func (j *fakeJobs) submit(style string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.submitErr != nil {
		return "", j.submitErr
	}
	j.nextID++
	jobID := "job-" + uuid.NewString()[:8]
	j.submitted = append(j.submitted, style)
	return jobID, nil
}

func (j *fakeJobs) SubmitPreview(imageURL, style string) (string, error) { return j.submit(style) }
func (j *fakeJobs) SubmitHd(imageURL, style string) (string, error)     { return j.submit(style) }

func (j *fakeJobs) script(jobID string, predictions ...*replicate.Prediction) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.predictions[jobID] = predictions
}

func (j *fakeJobs) GetPrediction(predictionID string) (*replicate.Prediction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	seq, ok := j.predictions[predictionID]
	if !ok {
		return &replicate.Prediction{ID: predictionID, Status: replicate.StatusProcessing}, nil
	}
	i := j.cursor[predictionID]
	if i >= len(seq) {
		i = len(seq) - 1
	} else {
		j.cursor[predictionID]++
	}
	return seq[i], nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	uploads map[string][]byte
	signed  int
	signTTL time.Duration
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{uploads: make(map[string][]byte)}
}

func (b *fakeBlobs) Upload(data []byte, storagePath, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads[storagePath] = data
	return nil
}

func (b *fakeBlobs) SignedURL(storagePath string, ttl time.Duration) (string, time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signed++
	b.signTTL = ttl
	return "https://signed.example/" + storagePath, time.Now().Add(ttl), nil
}

func (b *fakeBlobs) Delete(storagePath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.uploads, storagePath)
	return nil
}

type fakeImages struct {
	fetchErr    error
	makeErr     error
	panicInMake bool
}

func (f *fakeImages) FetchImage(url string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return []byte("raw-image"), nil
}

func (f *fakeImages) MakePreview(raw []byte) (*imaging.Artifact, error) {
	if f.panicInMake {
		panic("decoder blew up")
	}
	if f.makeErr != nil {
		return nil, f.makeErr
	}
	return &imaging.Artifact{Bytes: []byte("preview-png"), Width: 1024, Height: 768}, nil
}

func (f *fakeImages) MakeHd(raw []byte) (*imaging.Artifact, error) {
	if f.panicInMake {
		panic("decoder blew up")
	}
	if f.makeErr != nil {
		return nil, f.makeErr
	}
	return &imaging.Artifact{Bytes: []byte("hd-png"), Width: 2048, Height: 1536}, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *fakeMailer) SendStagingCompleted(to, name, projectID, projectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fixture wires a Service against the in-memory fakes. The reconciler is
// configured with an hour-long poll interval so background loops stay asleep
// unless a test tunes the polling itself.
type fixture struct {
	store      *fakeStore
	ledger     *fakeLedger
	limiter    *fakeLimiter
	jobs       *fakeJobs
	blobs      *fakeBlobs
	images     *fakeImages
	mailer     *fakeMailer
	reconciler *staging.Reconciler
	service    *staging.Service

	userID    uuid.UUID
	projectID uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store:   newFakeStore(),
		ledger:  &fakeLedger{balance: 3},
		limiter: &fakeLimiter{allowed: true, remaining: 9},
		jobs:    newFakeJobs(),
		blobs:   newFakeBlobs(),
		images:  &fakeImages{},
		mailer:  &fakeMailer{},

		userID:    uuid.New(),
		projectID: uuid.New(),
	}

	log := zerolog.Nop()
	f.reconciler = staging.NewReconciler(f.store, f.jobs, f.blobs, f.images, f.mailer, log)
	f.reconciler.SetPolling(time.Hour, 1, 1)
	f.service = staging.NewService(f.store, f.ledger, f.limiter, f.jobs, f.blobs, f.reconciler, log)

	f.store.projects[f.projectID] = &models.Project{
		ID:     f.projectID,
		UserID: f.userID,
		Name:   "Maple St listing",
		Status: models.ProjectDraft,
	}
	f.store.profiles[f.userID] = &models.Profile{
		ID:               f.userID,
		Email:            "agent@example.com",
		FullName:         "Jordan Agent",
		Plan:             "free",
		CreditsRemaining: 3,
	}

	return f
}

func (f *fixture) seedRequest(status string, approved, deducted bool) *models.StagingRequest {
	req := &models.StagingRequest{
		ID:               uuid.New(),
		UserID:           f.userID,
		ProjectID:        f.projectID,
		OriginalImageURL: "https://example.com/room.jpg",
		Style:            "scandinavian",
		OptionsHash:      staging.Fingerprint("scandinavian"),
		Status:           status,
		HdCreditDeducted: deducted,
	}
	if approved {
		req.ApprovedAt.Time = time.Now()
		req.ApprovedAt.Valid = true
	}
	f.store.seedRequest(req)
	return req
}
