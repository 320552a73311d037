package jobs_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	dbfs "github.com/garnizeh/realty/db"
	"github.com/garnizeh/realty/internal/db"
	"github.com/garnizeh/realty/internal/geo"
	"github.com/garnizeh/realty/internal/jobs"
	"github.com/garnizeh/realty/internal/notify"
	"github.com/garnizeh/realty/internal/repository/sqlite"
	"github.com/garnizeh/realty/pkg/models"
)

func setup(t *testing.T) (*db.DB, *jobs.Repository) {
	t.Helper()
	ctx := context.Background()
	d, err := db.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.Migrate(ctx, d, dbfs.Migrations, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d, jobs.NewRepository(d)
}

func TestEnqueueAndProcess(t *testing.T) {
	ctx := context.Background()
	_, repo := setup(t)

	handled := make(chan struct{}, 1)
	handlers := map[string]jobs.Handler{
		"test": func(ctx context.Context, j *jobs.Job) error {
			if string(j.Payload) != `{"foo":"bar"}` {
				t.Errorf("unexpected payload %s", j.Payload)
			}
			handled <- struct{}{}
			return nil
		},
	}
	pool := jobs.NewWorkerPool(repo, handlers, 1)
	pool.SetPollInterval(10 * time.Millisecond)
	pool.Start(ctx)
	defer pool.Stop()

	if _, err := pool.Enqueue(ctx, "test", map[string]string{"foo": "bar"}, 10, 3); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-handled:
		// ok
	case <-time.After(3 * time.Second):
		t.Fatalf("handler was not called")
	}
}

func TestSingleAttemptFailureIsDeadLettered(t *testing.T) {
	ctx := context.Background()
	_, repo := setup(t)

	var mu sync.Mutex
	calls := 0
	handlers := map[string]jobs.Handler{
		jobs.TypeEmailLead: func(ctx context.Context, j *jobs.Job) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return errors.New("ses unavailable")
		},
	}
	pool := jobs.NewWorkerPool(repo, handlers, 1)
	pool.SetPollInterval(10 * time.Millisecond)
	pool.Start(ctx)

	jobs.EnqueueEmail(ctx, pool, jobs.TypeEmailLead, notify.LeadEmail{Name: "A", Phone: "1"})

	deadline := time.Now().Add(3 * time.Second)
	var dead []jobs.DeadLetter
	for time.Now().Before(deadline) {
		var err error
		dead, err = repo.DeadLetters(ctx, 10)
		if err != nil {
			t.Fatalf("dead letters: %v", err)
		}
		if len(dead) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	pool.Stop()

	if len(dead) != 1 {
		t.Fatalf("expected one dead letter, got %d", len(dead))
	}
	if dead[0].Type != jobs.TypeEmailLead || dead[0].LastError != "ses unavailable" || dead[0].Attempts != 1 {
		t.Fatalf("unexpected dead letter %+v", dead[0])
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
	if n, _ := repo.Pending(ctx); n != 0 {
		t.Fatalf("expected no pending jobs, got %d", n)
	}
}

func TestClaim_PriorityScheduleAndOwnership(t *testing.T) {
	ctx := context.Background()
	_, repo := setup(t)

	if j, err := repo.Claim(ctx); err != nil || j != nil {
		t.Fatalf("expected empty queue, got %v %v", j, err)
	}

	future := time.Now().Add(time.Hour)
	if _, err := repo.Enqueue(ctx, &jobs.Job{Type: "later", Priority: 1, ScheduledAt: future}); err != nil {
		t.Fatalf("enqueue later: %v", err)
	}
	for typ, prio := range map[string]int{"low": 100, "high": 5} {
		if _, err := repo.Enqueue(ctx, &jobs.Job{Type: typ, Priority: prio}); err != nil {
			t.Fatalf("enqueue %s: %v", typ, err)
		}
	}

	first, err := repo.Claim(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if first == nil || first.Type != "high" || first.Status != jobs.StatusRunning || first.MaxAttempts != 5 {
		t.Fatalf("expected running high priority job with default attempts, got %+v", first)
	}

	// a claimed job is not handed out twice
	second, _ := repo.Claim(ctx)
	if second == nil || second.Type != "low" {
		t.Fatalf("expected low job next, got %+v", second)
	}
	if third, _ := repo.Claim(ctx); third != nil {
		t.Fatalf("expected nothing due, got %+v", third)
	}
	if n, _ := repo.Pending(ctx); n != 1 {
		t.Fatalf("expected only the scheduled job pending, got %d", n)
	}

	first.Status = jobs.StatusDone
	if err := repo.UpdateJob(ctx, first); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.Get(ctx, first.ID)
	if err != nil || got == nil || got.Status != jobs.StatusDone {
		t.Fatalf("expected done job, got %+v %v", got, err)
	}
	if missing, err := repo.Get(ctx, 9999); err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for unknown job, got %+v %v", missing, err)
	}
}

func TestRequeueRunning(t *testing.T) {
	ctx := context.Background()
	_, repo := setup(t)

	id, _ := repo.Enqueue(ctx, &jobs.Job{Type: jobs.TypeGeoDistances})
	if j, _ := repo.Claim(ctx); j == nil || j.ID != id {
		t.Fatalf("expected to claim job %d", id)
	}
	n, err := repo.RequeueRunning(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one requeued job, got %d %v", n, err)
	}
	j, _ := repo.Claim(ctx)
	if j == nil || j.ID != id {
		t.Fatalf("expected requeued job to be claimable again, got %+v", j)
	}
}

func TestFailedJobIsRetriedWithBackoff(t *testing.T) {
	ctx := context.Background()
	_, repo := setup(t)

	failed := make(chan struct{}, 1)
	pool := jobs.NewWorkerPool(repo, map[string]jobs.Handler{
		jobs.TypeGeoDistances: func(ctx context.Context, j *jobs.Job) error {
			failed <- struct{}{}
			return errors.New("routing api timeout")
		},
	}, 1)
	pool.SetPollInterval(10 * time.Millisecond)
	pool.Start(ctx)

	id, err := pool.Enqueue(ctx, jobs.TypeGeoDistances, map[string]int64{"project_id": 1}, 50, 3)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case <-failed:
	case <-time.After(3 * time.Second):
		t.Fatalf("handler was not called")
	}
	pool.Stop()

	j, err := repo.Get(ctx, id)
	if err != nil || j == nil {
		t.Fatalf("get job: %+v %v", j, err)
	}
	if j.Status != jobs.StatusRetry || j.Attempts != 1 || j.LastError != "routing api timeout" {
		t.Fatalf("unexpected job after failure %+v", j)
	}
	if j.NextTryAt == nil || time.Until(*j.NextTryAt) <= 0 {
		t.Fatalf("expected next try in the future, got %v", j.NextTryAt)
	}
}

func TestUnknownTypeIsDeadLettered(t *testing.T) {
	ctx := context.Background()
	_, repo := setup(t)

	pool := jobs.NewWorkerPool(repo, map[string]jobs.Handler{}, 1)
	pool.SetPollInterval(10 * time.Millisecond)
	if _, err := pool.Enqueue(ctx, "sms.lead", map[string]string{"to": "1"}, 10, 5); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	pool.Start(ctx)

	deadline := time.Now().Add(3 * time.Second)
	var dead []jobs.DeadLetter
	for time.Now().Before(deadline) && len(dead) == 0 {
		dead, _ = repo.DeadLetters(ctx, 10)
		time.Sleep(20 * time.Millisecond)
	}
	pool.Stop()

	if len(dead) != 1 || dead[0].Type != "sms.lead" || dead[0].LastError != "no handler for sms.lead" {
		t.Fatalf("unexpected dead letters %+v", dead)
	}
}

func TestBackoffDuration(t *testing.T) {
	if jobs.BackoffDuration(0) != time.Second {
		t.Fatalf("unexpected base backoff")
	}
	if jobs.BackoffDuration(3) != 8*time.Second {
		t.Fatalf("unexpected backoff for attempt 3")
	}
	for _, n := range []int{9, 20, 64} {
		if jobs.BackoffDuration(n) != 5*time.Minute {
			t.Fatalf("expected capped backoff for attempt %d", n)
		}
	}
}

type fakeNotifier struct {
	leads     []notify.LeadEmail
	subs      []notify.SubmissionEmail
	decisions []notify.DecisionEmail
}

func (f *fakeNotifier) LeadReceived(_ context.Context, e notify.LeadEmail) error {
	f.leads = append(f.leads, e)
	return nil
}

func (f *fakeNotifier) SubmissionReceived(_ context.Context, e notify.SubmissionEmail) error {
	f.subs = append(f.subs, e)
	return nil
}

func (f *fakeNotifier) ListingDecision(_ context.Context, e notify.DecisionEmail) error {
	f.decisions = append(f.decisions, e)
	return nil
}

type fakeDistancer struct {
	origin geo.Point
	area   string
}

func (f *fakeDistancer) Distances(_ context.Context, origin geo.Point, landmarks []models.Landmark, area string) []models.Landmark {
	f.origin, f.area = origin, area
	// the first landmark resolves, the rest are dropped
	return []models.Landmark{{Name: landmarks[0].Name, DistanceKM: 3.2, DurationMin: 9}}
}

func TestHandlers_Email(t *testing.T) {
	ctx := context.Background()
	n := &fakeNotifier{}
	h := jobs.Handlers(n, nil, nil)

	if err := h[jobs.TypeEmailLead](ctx, &jobs.Job{Payload: []byte(`{"name":"Asha","phone":"9"}`)}); err != nil {
		t.Fatalf("lead: %v", err)
	}
	if err := h[jobs.TypeEmailSubmission](ctx, &jobs.Job{Payload: []byte(`{"title":"Lake View"}`)}); err != nil {
		t.Fatalf("submission: %v", err)
	}
	if err := h[jobs.TypeEmailDecision](ctx, &jobs.Job{Payload: []byte(`{"to":"o@example.com","approved":true}`)}); err != nil {
		t.Fatalf("decision: %v", err)
	}
	if err := h[jobs.TypeEmailLead](ctx, &jobs.Job{Payload: []byte(`not json`)}); err == nil {
		t.Fatalf("expected decode error")
	}
	if len(n.leads) != 1 || n.leads[0].Name != "Asha" || len(n.subs) != 1 || len(n.decisions) != 1 || !n.decisions[0].Approved {
		t.Fatalf("unexpected notifications %+v", n)
	}
	if err := h[jobs.TypeGeoDistances](ctx, &jobs.Job{Payload: []byte(`{"project_id":1}`)}); err != nil {
		t.Fatalf("geo without distancer should be a no-op: %v", err)
	}
}

func TestRefreshDistances(t *testing.T) {
	ctx := context.Background()
	d, _ := setup(t)
	repo := sqlite.New(d, nil)

	lat, lng := 18.52, 73.85
	id, err := repo.CreateProject(ctx, &models.Project{
		Title: "Lake View", Slug: "lake-view", Location: "Baner", City: "Pune",
		ListingType: models.ListingResale, Latitude: &lat, Longitude: &lng,
		Landmarks: []models.Landmark{{Name: "Station"}, {Name: "Mall"}},
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	noCoords, err := repo.CreateProject(ctx, &models.Project{Title: "No Coords", Slug: "no-coords", Location: "X", ListingType: models.ListingResale})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	dist := &fakeDistancer{}
	h := jobs.Handlers(&fakeNotifier{}, repo, dist)
	if err := h[jobs.TypeGeoDistances](ctx, &jobs.Job{Payload: []byte(`{"project_id":` + strconv.FormatInt(id, 10) + `}`)}); err != nil {
		t.Fatalf("geo job: %v", err)
	}

	p, err := repo.GetProjectByID(ctx, id)
	if err != nil || p == nil {
		t.Fatalf("get project: %v", err)
	}
	if len(p.Landmarks) != 1 || p.Landmarks[0].Name != "Station" || p.Landmarks[0].DistanceKM != 3.2 {
		t.Fatalf("unexpected landmarks %+v", p.Landmarks)
	}
	if dist.area != "Pune" || dist.origin.Lat != lat {
		t.Fatalf("unexpected lookup args %+v", dist)
	}

	if _, err := jobs.RefreshDistances(ctx, repo, dist, noCoords); !errors.Is(err, jobs.ErrNoCoordinates) {
		t.Fatalf("expected ErrNoCoordinates, got %v", err)
	}
	if _, err := jobs.RefreshDistances(ctx, repo, dist, 9999); err == nil {
		t.Fatalf("expected error for missing project")
	}
}
