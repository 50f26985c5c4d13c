package sqldb_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	dbfs "github.com/Aghostraa/abcr-deployment-v2/db"
	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
	"github.com/Aghostraa/abcr-deployment-v2/internal/repository/sqldb"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/repository"
)

func newRepo(t *testing.T) *sqldb.SQLRepo {
	t.Helper()
	r, _ := newStore(t)
	return r
}

func newStore(t *testing.T) (*sqldb.SQLRepo, *db.DB) {
	t.Helper()
	ctx := context.Background()

	d, err := db.New(ctx, "sqlite", filepath.Join(t.TempDir(), "club.db"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return sqldb.New(d, nil), d
}

func mustUser(t *testing.T, r *sqldb.SQLRepo, email string, role models.Role) *models.User {
	t.Helper()
	ctx := context.Background()
	u := &models.User{Email: email}
	if _, err := r.EnsureProfile(ctx, u); err != nil {
		t.Fatalf("EnsureProfile(%s): %v", email, err)
	}
	if role != models.RoleVisitor {
		if _, err := r.SetUserRole(ctx, u.ID, role); err != nil {
			t.Fatalf("SetUserRole: %v", err)
		}
		u.Role = role
	}
	return u
}

func mustProject(t *testing.T, r *sqldb.SQLRepo) *models.Project {
	t.Helper()
	p := &models.Project{ID: uuid.NewString(), Name: "Website", Status: models.ProjectActive}
	if err := r.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func mustTask(t *testing.T, r *sqldb.SQLRepo, projectID, creator string, points int64, amp float64) *models.Task {
	t.Helper()
	task := &models.Task{
		ID:             uuid.NewString(),
		Name:           "Write docs",
		Urgency:        2,
		Difficulty:     3,
		Priority:       1,
		Points:         points,
		PointAmplifier: amp,
		ProjectID:      projectID,
		Status:         models.StatusOpen,
		CreatedBy:      creator,
	}
	if err := r.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func points(t *testing.T, r *sqldb.SQLRepo, id string) int64 {
	t.Helper()
	u, err := r.GetUserByID(context.Background(), id)
	if err != nil || u == nil {
		t.Fatalf("GetUserByID: %v %v", u, err)
	}
	return u.Points
}

func TestEnsureProfile_ProvisionsOnce(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	u := &models.User{Email: "ada@club.org"}
	created, err := r.EnsureProfile(ctx, u)
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if !created {
		t.Fatalf("expected first call to create the profile")
	}
	if u.Role != models.RoleVisitor || u.Points != 0 || u.ID == "" {
		t.Fatalf("unexpected new profile: %+v", u)
	}

	again := &models.User{Email: "ada@club.org"}
	created, err = r.EnsureProfile(ctx, again)
	if err != nil {
		t.Fatalf("second EnsureProfile: %v", err)
	}
	if created {
		t.Fatalf("expected existing profile to be reused")
	}
	if again.ID != u.ID {
		t.Fatalf("expected same id, got %s and %s", u.ID, again.ID)
	}
	if again.LastLogin == nil {
		t.Fatalf("expected last_login to be set")
	}

	users, err := r.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected exactly one profile, got %d", len(users))
	}
}

func TestGetUserRole(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	role, err := r.GetUserRole(ctx, "nobody@club.org")
	if err != nil {
		t.Fatalf("GetUserRole: %v", err)
	}
	if role != models.RoleVisitor {
		t.Fatalf("expected Visitor for unknown email, got %s", role)
	}

	u := mustUser(t, r, "mgr@club.org", models.RoleManager)
	role, err = r.GetUserRole(ctx, u.Email)
	if err != nil {
		t.Fatalf("GetUserRole: %v", err)
	}
	if role != models.RoleManager {
		t.Fatalf("expected Manager, got %s", role)
	}

	missing, err := r.GetUserByID(ctx, "does-not-exist")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing user, got %v, %v", missing, err)
	}
}

func TestApplyTask_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	mgr := mustUser(t, r, "mgr@club.org", models.RoleManager)
	p := mustProject(t, r)
	task := mustTask(t, r, p.ID, mgr.ID, 60, 1)

	const n = 8
	applicants := make([]*models.User, n)
	for i := range applicants {
		applicants[i] = mustUser(t, r, uuid.NewString()+"@club.org", models.RoleMember)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, a := range applicants {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			ok, err := r.ApplyTask(ctx, task.ID, uid)
			if err != nil {
				t.Errorf("ApplyTask: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(a.ID)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful apply, got %d", wins)
	}

	got, err := r.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != models.StatusAwaitingApplicantApproval || got.AssignedUserID == nil {
		t.Fatalf("unexpected task after apply: %+v", got)
	}
}

func TestTaskLifecycle_AwardsOnce(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	mgr := mustUser(t, r, "mgr@club.org", models.RoleManager)
	member := mustUser(t, r, "m@club.org", models.RoleMember)
	p := mustProject(t, r)
	task := mustTask(t, r, p.ID, mgr.ID, 60, 1.5)

	if ok, err := r.ApplyTask(ctx, task.ID, member.ID); err != nil || !ok {
		t.Fatalf("ApplyTask: %v %v", ok, err)
	}
	if ok, err := r.SetAmplifier(ctx, task.ID, 2); err != nil || ok {
		t.Fatalf("expected amplifier change to be refused outside Open: %v %v", ok, err)
	}
	if ok, err := r.TransitionTask(ctx, task.ID, models.StatusAwaitingApplicantApproval, models.StatusInProgress, ""); err != nil || !ok {
		t.Fatalf("approve application: %v %v", ok, err)
	}
	if ok, err := r.TransitionTask(ctx, task.ID, models.StatusInProgress, models.StatusAwaitingCompletionApproval, mgr.ID); err != nil || ok {
		t.Fatalf("expected non-assignee mark done to fail: %v %v", ok, err)
	}
	if ok, err := r.TransitionTask(ctx, task.ID, models.StatusInProgress, models.StatusAwaitingCompletionApproval, member.ID); err != nil || !ok {
		t.Fatalf("mark done: %v %v", ok, err)
	}

	pt, err := r.CompleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if pt == nil || pt.Amount != 90 {
		t.Fatalf("expected 90 points awarded, got %+v", pt)
	}

	again, err := r.CompleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("second CompleteTask: %v", err)
	}
	if again != nil {
		t.Fatalf("expected no second award, got %+v", again)
	}

	if got := points(t, r, member.ID); got != 90 {
		t.Fatalf("expected 90 points, got %d", got)
	}
	n, err := r.CountCompletedTasks(ctx, member.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountCompletedTasks = %d, %v", n, err)
	}
}

func TestReopenTask(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	mgr := mustUser(t, r, "mgr@club.org", models.RoleManager)
	member := mustUser(t, r, "m@club.org", models.RoleMember)
	p := mustProject(t, r)
	task := mustTask(t, r, p.ID, mgr.ID, 30, 1)

	if ok, _ := r.ApplyTask(ctx, task.ID, member.ID); !ok {
		t.Fatalf("ApplyTask failed")
	}
	if ok, err := r.ReopenTask(ctx, task.ID); err != nil || !ok {
		t.Fatalf("ReopenTask: %v %v", ok, err)
	}

	got, _ := r.GetTask(ctx, task.ID)
	if got.Status != models.StatusOpen || got.AssignedUserID != nil {
		t.Fatalf("expected open unassigned task, got %+v", got)
	}
	if ok, err := r.SetAmplifier(ctx, task.ID, 2.5); err != nil || !ok {
		t.Fatalf("SetAmplifier on open task: %v %v", ok, err)
	}

	open, err := r.ListTasks(ctx, models.TaskFilter{Status: models.StatusOpen, ProjectID: p.ID})
	if err != nil || len(open) != 1 || open[0].PointAmplifier != 2.5 {
		t.Fatalf("ListTasks = %+v, %v", open, err)
	}
}

func TestDeleteProject_RefusedWithTasks(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	mgr := mustUser(t, r, "mgr@club.org", models.RoleManager)
	p := mustProject(t, r)
	mustTask(t, r, p.ID, mgr.ID, 30, 1)

	if _, err := r.DeleteProject(ctx, p.ID); !errors.Is(err, repository.ErrHasDependents) {
		t.Fatalf("expected ErrHasDependents, got %v", err)
	}

	empty := mustProject(t, r)
	ok, err := r.DeleteProject(ctx, empty.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteProject(empty) = %v, %v", ok, err)
	}

	got, err := r.GetProject(ctx, p.ID)
	if err != nil || got == nil {
		t.Fatalf("GetProject: %v %v", got, err)
	}
	if got.OpenTasks != 1 {
		t.Fatalf("expected 1 open task, got %d", got.OpenTasks)
	}
}

func TestEventCheckIn_Idempotent(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	mgr := mustUser(t, r, "mgr@club.org", models.RoleManager)
	member := mustUser(t, r, "m@club.org", models.RoleMember)
	e := &models.Event{ID: uuid.NewString(), Name: "Meetup", EventDate: time.Now().UnixMilli(), CreatedBy: mgr.ID}
	if err := r.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	credited, err := r.CheckIn(ctx, e.ID, member.ID, 20)
	if err != nil || !credited {
		t.Fatalf("first CheckIn = %v, %v", credited, err)
	}
	credited, err = r.CheckIn(ctx, e.ID, member.ID, 20)
	if err != nil || credited {
		t.Fatalf("second CheckIn = %v, %v", credited, err)
	}

	if got := points(t, r, member.ID); got != 20 {
		t.Fatalf("expected 20 points, got %d", got)
	}

	a, err := r.GetAttendance(ctx, e.ID, member.ID)
	if err != nil || a == nil || a.Status != models.AttendanceApproved {
		t.Fatalf("GetAttendance = %+v, %v", a, err)
	}
}

func TestApproveAttendances_SharesLedgerKeyWithCheckIn(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	mgr := mustUser(t, r, "mgr@club.org", models.RoleManager)
	alice := mustUser(t, r, "alice@club.org", models.RoleMember)
	bob := mustUser(t, r, "bob@club.org", models.RoleMember)
	e := &models.Event{ID: uuid.NewString(), Name: "Workshop", EventDate: time.Now().Add(48 * time.Hour).UnixMilli(), CreatedBy: mgr.ID}
	if err := r.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	for _, u := range []*models.User{alice, bob} {
		ok, err := r.RegisterAttendance(ctx, &models.Attendance{EventID: e.ID, UserID: u.ID})
		if err != nil || !ok {
			t.Fatalf("RegisterAttendance: %v %v", ok, err)
		}
	}
	if ok, err := r.RegisterAttendance(ctx, &models.Attendance{EventID: e.ID, UserID: alice.ID}); err != nil || ok {
		t.Fatalf("expected duplicate registration to be refused: %v %v", ok, err)
	}

	// bob checks in by QR first; approval must not pay him again
	if ok, err := r.CheckIn(ctx, e.ID, bob.ID, 20); err != nil || !ok {
		t.Fatalf("CheckIn: %v %v", ok, err)
	}

	credited, err := r.ApproveAttendances(ctx, e.ID, []string{alice.ID, bob.ID}, 20)
	if err != nil {
		t.Fatalf("ApproveAttendances: %v", err)
	}
	if len(credited) != 1 || credited[0] != alice.ID {
		t.Fatalf("expected only alice credited, got %v", credited)
	}
	if points(t, r, alice.ID) != 20 || points(t, r, bob.ID) != 20 {
		t.Fatalf("unexpected points alice=%d bob=%d", points(t, r, alice.ID), points(t, r, bob.ID))
	}

	list, err := r.ListAttendances(ctx, e.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListAttendances = %v, %v", list, err)
	}
	for _, a := range list {
		if a.Status != models.AttendanceApproved || a.Email == "" {
			t.Fatalf("unexpected attendance %+v", a)
		}
	}

	if ok, err := r.DeleteEvent(ctx, e.ID); err != nil || !ok {
		t.Fatalf("DeleteEvent: %v %v", ok, err)
	}
	if list, _ := r.ListAttendances(ctx, e.ID); len(list) != 0 {
		t.Fatalf("expected attendances to cascade, got %d", len(list))
	}
}

func TestCompleteRecurringTask_OncePerDay(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	member := mustUser(t, r, "m@club.org", models.RoleMember)
	rt, err := r.GetRecurringTask(ctx, "share-club-post")
	if err != nil || rt == nil {
		t.Fatalf("expected seeded recurring task, got %v %v", rt, err)
	}

	c := &models.RecurringCompletion{RecurringTaskID: rt.ID, UserID: member.ID, CompletedOn: "2026-03-02"}
	if ok, err := r.CompleteRecurringTask(ctx, c, rt.Points); err != nil || !ok {
		t.Fatalf("first completion: %v %v", ok, err)
	}
	dup := &models.RecurringCompletion{RecurringTaskID: rt.ID, UserID: member.ID, CompletedOn: "2026-03-02"}
	if ok, err := r.CompleteRecurringTask(ctx, dup, rt.Points); err != nil || ok {
		t.Fatalf("expected same-day completion to be refused: %v %v", ok, err)
	}
	next := &models.RecurringCompletion{RecurringTaskID: rt.ID, UserID: member.ID, CompletedOn: "2026-03-03"}
	if ok, err := r.CompleteRecurringTask(ctx, next, rt.Points); err != nil || !ok {
		t.Fatalf("next-day completion: %v %v", ok, err)
	}

	if got := points(t, r, member.ID); got != 2*rt.Points {
		t.Fatalf("expected %d points, got %d", 2*rt.Points, got)
	}
	has, err := r.HasCompletion(ctx, rt.ID, member.ID, "2026-03-02")
	if err != nil || !has {
		t.Fatalf("HasCompletion = %v, %v", has, err)
	}
}

func TestLedger_AwardAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	a := mustUser(t, r, "alice@club.org", models.RoleMember)
	b := mustUser(t, r, "bob@club.org", models.RoleMember)
	c := mustUser(t, r, "carol@club.org", models.RoleMember)
	mustUser(t, r, "visitor@club.org", models.RoleVisitor)

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	awards := []models.PointTransaction{
		{UserID: a.ID, Amount: 50, SourceType: models.SourceTask, SourceID: "t1", Created: old},
		{UserID: a.ID, Amount: 10, SourceType: models.SourceWeeklyCheckin, SourceID: "2026-W10"},
		{UserID: b.ID, Amount: 60, SourceType: models.SourceTask, SourceID: "t2"},
		{UserID: c.ID, Amount: 20, SourceType: models.SourceEvent, SourceID: "e1"},
	}
	for i := range awards {
		ok, err := r.Award(ctx, &awards[i])
		if err != nil || !ok {
			t.Fatalf("Award #%d: %v %v", i, ok, err)
		}
	}

	dup := models.PointTransaction{UserID: c.ID, Amount: 20, SourceType: models.SourceEvent, SourceID: "e1"}
	if ok, err := r.Award(ctx, &dup); err != nil || ok {
		t.Fatalf("expected duplicate award to be ignored: %v %v", ok, err)
	}

	has, err := r.HasTransaction(ctx, c.ID, models.SourceEvent, "e1")
	if err != nil || !has {
		t.Fatalf("HasTransaction = %v, %v", has, err)
	}

	monthStart := time.Now().UTC().AddDate(0, 0, -1).UnixMilli()
	board, err := r.Leaderboard(ctx, monthStart, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 3 {
		t.Fatalf("expected 3 ranked members, got %d", len(board))
	}

	// alice and bob tie on 60 and share rank 1; carol is third
	if board[0].Rank != 1 || board[1].Rank != 1 || board[2].Rank != 3 {
		t.Fatalf("unexpected ranks: %+v", board)
	}
	if board[0].Email != "alice" || board[0].MonthlyPoints != 10 {
		t.Fatalf("unexpected first entry: %+v", board[0])
	}
	if board[2].Email != "carol" || board[2].TotalPoints != 20 {
		t.Fatalf("unexpected third entry: %+v", board[2])
	}

	txs, err := r.ListTransactions(ctx, a.ID, 10, 0)
	if err != nil || len(txs) != 2 {
		t.Fatalf("ListTransactions = %v, %v", txs, err)
	}
	if txs[0].SourceType != models.SourceWeeklyCheckin {
		t.Fatalf("expected newest first, got %+v", txs[0])
	}
	n, err := r.CountTransactions(ctx, a.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountTransactions = %d, %v", n, err)
	}
}

func TestReconcilePoints(t *testing.T) {
	ctx := context.Background()
	r, d := newStore(t)

	a := mustUser(t, r, "alice@club.org", models.RoleMember)
	if _, err := r.Award(ctx, &models.PointTransaction{UserID: a.ID, Amount: 40, SourceType: models.SourceTask, SourceID: "t1"}); err != nil {
		t.Fatalf("Award: %v", err)
	}

	fixed, err := r.ReconcilePoints(ctx)
	if err != nil || fixed != 0 {
		t.Fatalf("expected nothing to reconcile, got %d, %v", fixed, err)
	}

	// knock the cached total out of sync with the ledger
	if _, err := d.Exec(ctx, `UPDATE user_profiles SET points = 999 WHERE id = ?`, a.ID); err != nil {
		t.Fatalf("corrupt points: %v", err)
	}

	fixed, err = r.ReconcilePoints(ctx)
	if err != nil || fixed != 1 {
		t.Fatalf("expected one profile corrected, got %d, %v", fixed, err)
	}
	if got := points(t, r, a.ID); got != 40 {
		t.Fatalf("expected 40 points after reconcile, got %d", got)
	}
}

func TestLoginCodes(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	nowMs := time.Now().UnixMilli()
	live := &models.LoginCode{Code: uuid.NewString(), Email: "a@club.org", Expires: nowMs + 60_000}
	stale := &models.LoginCode{Code: uuid.NewString(), Email: "b@club.org", Expires: nowMs - 1}
	for _, c := range []*models.LoginCode{live, stale} {
		if err := r.CreateLoginCode(ctx, c); err != nil {
			t.Fatalf("CreateLoginCode: %v", err)
		}
	}

	got, err := r.ConsumeLoginCode(ctx, live.Code, nowMs)
	if err != nil || got == nil || got.Email != "a@club.org" {
		t.Fatalf("ConsumeLoginCode = %+v, %v", got, err)
	}
	again, err := r.ConsumeLoginCode(ctx, live.Code, nowMs)
	if err != nil || again != nil {
		t.Fatalf("expected one-time use, got %+v, %v", again, err)
	}

	purged, err := r.PurgeExpiredLoginCodes(ctx, nowMs)
	if err != nil || purged != 1 {
		t.Fatalf("PurgeExpiredLoginCodes = %d, %v", purged, err)
	}

	ok, err := r.CreateCredential(ctx, &models.Credential{Email: "a@club.org", PasswordHash: "h"})
	if err != nil || !ok {
		t.Fatalf("CreateCredential: %v %v", ok, err)
	}
	ok, err = r.CreateCredential(ctx, &models.Credential{Email: "a@club.org", PasswordHash: "h2"})
	if err != nil || ok {
		t.Fatalf("expected duplicate credential refused: %v %v", ok, err)
	}
}

func TestCategoriesSeeded(t *testing.T) {
	cats, err := newRepo(t).ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 5 {
		t.Fatalf("expected 5 categories, got %d", len(cats))
	}
}
