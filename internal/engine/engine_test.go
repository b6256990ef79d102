package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stagehub/internal/config"
	"stagehub/internal/db"
	"stagehub/internal/domain"
	"stagehub/internal/engine"
	"stagehub/internal/engine/fault"
	"stagehub/internal/migrate"
	"stagehub/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context

	Admin      domain.Actor
	Direction  domain.Actor
	Head       domain.Actor
	Supervisor domain.Actor

	InternID     int64
	DepartmentID int64
	DomainID     int64
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	bootstrap := domain.Actor{ID: 1, Role: domain.RoleAdmin}
	env := testEnv{Engine: eng, Ctx: ctx}
	adminP, err := eng.CreatePerson(ctx, bootstrap, "Ana Admin", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	env.Admin = domain.Actor{ID: adminP.ID, Role: adminP.Role}
	dirP, err := eng.CreatePerson(ctx, env.Admin, "Dana Direction", domain.RoleDirectionMember)
	if err != nil {
		t.Fatalf("create direction member: %v", err)
	}
	env.Direction = domain.Actor{ID: dirP.ID, Role: dirP.Role}
	headP, err := eng.CreatePerson(ctx, env.Admin, "Hugo Head", domain.RoleDepartmentHead)
	if err != nil {
		t.Fatalf("create department head: %v", err)
	}
	env.Head = domain.Actor{ID: headP.ID, Role: headP.Role}
	supP, err := eng.CreatePerson(ctx, env.Admin, "Sofia Supervisor", domain.RoleSupervisor)
	if err != nil {
		t.Fatalf("create supervisor: %v", err)
	}
	env.Supervisor = domain.Actor{ID: supP.ID, Role: supP.Role}
	internP, err := eng.CreatePerson(ctx, env.Admin, "Iris Intern", domain.RoleIntern)
	if err != nil {
		t.Fatalf("create intern: %v", err)
	}
	env.InternID = internP.ID

	dept, err := eng.CreateDepartment(ctx, env.Admin, "Informatics")
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	env.DepartmentID = dept.ID
	dom, err := eng.CreateDomain(ctx, env.Admin, "Distributed Systems", dept.ID)
	if err != nil {
		t.Fatalf("create domain: %v", err)
	}
	env.DomainID = dom.ID
	return env
}

func strp(s string) *string { return &s }

func i64p(v int64) *int64 { return &v }

func intp(v int) *int { return &v }

// openAgreement runs the front of the lifecycle: request, acceptance,
// and the freshly opened agreement.
func (env testEnv) openAgreement(t *testing.T) domain.AgreementRequest {
	t.Helper()
	req, err := env.Engine.CreateRequest(env.Ctx, env.Direction, engine.RequestCreateOptions{InternIDs: []int64{env.InternID}})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := env.Engine.DecideRequest(env.Ctx, env.Admin, req.ID, true, nil); err != nil {
		t.Fatalf("accept request: %v", err)
	}
	a, err := env.Engine.Repo.GetAgreementByRequest(env.Ctx, req.ID)
	if err != nil {
		t.Fatalf("get agreement: %v", err)
	}
	return a
}

// completeAgreement fills both sections of an open agreement.
func (env testEnv) completeAgreement(t *testing.T, id int64) domain.AgreementRequest {
	t.Helper()
	_, err := env.Engine.UpdateAgreementDirection(env.Ctx, env.Direction, id, engine.DirectionSectionOptions{
		ThemeName:          strp("Streaming log compaction"),
		DepartmentID:       i64p(env.DepartmentID),
		DomainID:           i64p(env.DomainID),
		NatureOfInternship: strp("research"),
		Institution:        strp("ENS Tunis"),
		Specialty:          strp("computer science"),
		DegreeSought:       strp("MSc"),
		DepartmentHeadID:   i64p(env.Head.ID),
	})
	if err != nil {
		t.Fatalf("direction section: %v", err)
	}
	a, err := env.Engine.UpdateAgreementHead(env.Ctx, env.Head, id, engine.HeadSectionOptions{
		HostService:          strp("platform team"),
		StartDate:            strp("2025-04-01"),
		EndDate:              strp("2025-07-31"),
		SessionsPerWeek:      intp(3),
		SessionDurationHours: intp(4),
		SupervisorID:         i64p(env.Supervisor.ID),
	})
	if err != nil {
		t.Fatalf("head section: %v", err)
	}
	return a
}

// activeStage walks a fresh agreement all the way to an active stage.
func (env testEnv) activeStage(t *testing.T) domain.Stage {
	t.Helper()
	a := env.openAgreement(t)
	env.completeAgreement(t, a.ID)
	if _, err := env.Engine.DecideAgreement(env.Ctx, env.Admin, a.ID, true); err != nil {
		t.Fatalf("accept agreement: %v", err)
	}
	s, err := env.Engine.Repo.GetStageByAgreement(env.Ctx, a.ID)
	if err != nil {
		t.Fatalf("get stage: %v", err)
	}
	c, err := env.Engine.AttachConvention(env.Ctx, env.Supervisor, s.ID, "convention.pdf")
	if err != nil {
		t.Fatalf("create convention: %v", err)
	}
	if _, err := env.Engine.DecideConvention(env.Ctx, env.Admin, c.ID, true, nil); err != nil {
		t.Fatalf("accept convention: %v", err)
	}
	s, err = env.Engine.Repo.GetStage(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("reload stage: %v", err)
	}
	return s
}

func TestRequestAcceptanceOpensAgreement(t *testing.T) {
	env := newTestEnv(t)
	req, err := env.Engine.CreateRequest(env.Ctx, env.Direction, engine.RequestCreateOptions{InternIDs: []int64{env.InternID}})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if req.Status != domain.RequestPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	decided, err := env.Engine.DecideRequest(env.Ctx, env.Admin, req.ID, true, nil)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if decided.Status != domain.RequestAccepted {
		t.Fatalf("expected accepted, got %s", decided.Status)
	}
	a, err := env.Engine.Repo.GetAgreementByRequest(env.Ctx, req.ID)
	if err != nil {
		t.Fatalf("agreement should exist: %v", err)
	}
	if a.Status != domain.AgreementInProgress {
		t.Fatalf("expected in_progress, got %s", a.Status)
	}
}

func TestRequestRejectionRequiresComment(t *testing.T) {
	env := newTestEnv(t)
	req, _ := env.Engine.CreateRequest(env.Ctx, env.Direction, engine.RequestCreateOptions{InternIDs: []int64{env.InternID}})
	_, err := env.Engine.DecideRequest(env.Ctx, env.Admin, req.ID, false, nil)
	var ve fault.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	decided, err := env.Engine.DecideRequest(env.Ctx, env.Admin, req.ID, false, strp("no capacity this term"))
	if err != nil {
		t.Fatalf("reject with comment: %v", err)
	}
	if decided.Status != domain.RequestRejected {
		t.Fatalf("expected rejected, got %s", decided.Status)
	}
	// decided twice is an invalid transition
	_, err = env.Engine.DecideRequest(env.Ctx, env.Admin, req.ID, true, nil)
	var te fault.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestRequestRoleGate(t *testing.T) {
	env := newTestEnv(t)
	intern := domain.Actor{ID: env.InternID, Role: domain.RoleIntern}
	_, err := env.Engine.CreateRequest(env.Ctx, intern, engine.RequestCreateOptions{InternIDs: []int64{env.InternID}})
	var fe fault.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	req, _ := env.Engine.CreateRequest(env.Ctx, env.Direction, engine.RequestCreateOptions{InternIDs: []int64{env.InternID}})
	_, err = env.Engine.DecideRequest(env.Ctx, env.Direction, req.ID, true, nil)
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for non-admin decision, got %v", err)
	}
}

func TestAgreementWriteOnceFields(t *testing.T) {
	env := newTestEnv(t)
	a := env.openAgreement(t)
	if _, err := env.Engine.UpdateAgreementDirection(env.Ctx, env.Direction, a.ID, engine.DirectionSectionOptions{
		DepartmentID: i64p(env.DepartmentID),
	}); err != nil {
		t.Fatalf("set department: %v", err)
	}
	// repeating the same value is fine
	if _, err := env.Engine.UpdateAgreementDirection(env.Ctx, env.Direction, a.ID, engine.DirectionSectionOptions{
		DepartmentID: i64p(env.DepartmentID),
	}); err != nil {
		t.Fatalf("repeat department: %v", err)
	}
	other, err := env.Engine.CreateDepartment(env.Ctx, env.Admin, "Mathematics")
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.UpdateAgreementDirection(env.Ctx, env.Direction, a.ID, engine.DirectionSectionOptions{
		DepartmentID: i64p(other.ID),
	})
	var le fault.FieldLockedError
	if !errors.As(err, &le) {
		t.Fatalf("expected field locked, got %v", err)
	}
}

func TestAgreementDomainMustMatchDepartment(t *testing.T) {
	env := newTestEnv(t)
	a := env.openAgreement(t)
	other, _ := env.Engine.CreateDepartment(env.Ctx, env.Admin, "Mathematics")
	otherDom, _ := env.Engine.CreateDomain(env.Ctx, env.Admin, "Algebra", other.ID)
	_, err := env.Engine.UpdateAgreementDirection(env.Ctx, env.Direction, a.ID, engine.DirectionSectionOptions{
		DepartmentID: i64p(env.DepartmentID),
		DomainID:     i64p(otherDom.ID),
	})
	var ve fault.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssignmentAvailability(t *testing.T) {
	env := newTestEnv(t)
	a := env.openAgreement(t)
	// the available flag only gates supervisors; a head with the flag
	// down is still assignable as long as they are active
	if _, err := env.Engine.SetPersonFlags(env.Ctx, env.Admin, env.Head.ID, nil, boolp(false)); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateAgreementDirection(env.Ctx, env.Direction, a.ID, engine.DirectionSectionOptions{
		DepartmentHeadID: i64p(env.Head.ID),
	}); err != nil {
		t.Fatalf("assign unavailable head: %v", err)
	}

	if _, err := env.Engine.SetPersonFlags(env.Ctx, env.Admin, env.Supervisor.ID, nil, boolp(false)); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.UpdateAgreementHead(env.Ctx, env.Head, a.ID, engine.HeadSectionOptions{
		SupervisorID: i64p(env.Supervisor.ID),
	})
	var ue fault.UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := env.Engine.SetPersonFlags(env.Ctx, env.Admin, env.Supervisor.ID, nil, boolp(true)); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateAgreementHead(env.Ctx, env.Head, a.ID, engine.HeadSectionOptions{
		SupervisorID: i64p(env.Supervisor.ID),
	}); err != nil {
		t.Fatalf("assign supervisor: %v", err)
	}
	// once assigned, repeating the assignment skips the availability
	// check entirely
	if _, err := env.Engine.SetPersonFlags(env.Ctx, env.Admin, env.Supervisor.ID, nil, boolp(false)); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateAgreementHead(env.Ctx, env.Head, a.ID, engine.HeadSectionOptions{
		SupervisorID: i64p(env.Supervisor.ID),
	}); err != nil {
		t.Fatalf("reassigning the same supervisor should be a no-op: %v", err)
	}
}

func TestAssignmentUnknownCandidateIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	a := env.openAgreement(t)
	_, err := env.Engine.UpdateAgreementDirection(env.Ctx, env.Direction, a.ID, engine.DirectionSectionOptions{
		DepartmentHeadID: i64p(99999),
	})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func boolp(v bool) *bool { return &v }

func TestHeadSectionOwnership(t *testing.T) {
	env := newTestEnv(t)
	a := env.openAgreement(t)
	// no head assigned yet, so a department head cannot touch the section
	_, err := env.Engine.UpdateAgreementHead(env.Ctx, env.Head, a.ID, engine.HeadSectionOptions{HostService: strp("lab")})
	var fe fault.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	otherHead, _ := env.Engine.CreatePerson(env.Ctx, env.Admin, "Olga Other", domain.RoleDepartmentHead)
	if _, err := env.Engine.UpdateAgreementDirection(env.Ctx, env.Direction, a.ID, engine.DirectionSectionOptions{
		DepartmentHeadID: i64p(otherHead.ID),
	}); err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.UpdateAgreementHead(env.Ctx, env.Head, a.ID, engine.HeadSectionOptions{HostService: strp("lab")})
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for non-assigned head, got %v", err)
	}
}

func TestAgreementAcceptanceCreatesStage(t *testing.T) {
	env := newTestEnv(t)
	a := env.openAgreement(t)

	// acceptance is blocked until both sections are complete
	_, err := env.Engine.DecideAgreement(env.Ctx, env.Admin, a.ID, true)
	var ve fault.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	a = env.completeAgreement(t, a.ID)
	if a.EffectiveStatus() != domain.AgreementPending {
		t.Fatalf("expected pending projection, got %s", a.EffectiveStatus())
	}
	decided, err := env.Engine.DecideAgreement(env.Ctx, env.Admin, a.ID, true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if decided.Status != domain.AgreementAccepted {
		t.Fatalf("expected accepted, got %s", decided.Status)
	}
	s, err := env.Engine.Repo.GetStageByAgreement(env.Ctx, a.ID)
	if err != nil {
		t.Fatalf("stage should exist: %v", err)
	}
	if s.Status != domain.StagePending {
		t.Fatalf("expected pending stage, got %s", s.Status)
	}
	if s.SupervisorID != env.Supervisor.ID || s.DepartmentID != env.DepartmentID || s.DomainID != env.DomainID {
		t.Fatalf("stage snapshot mismatch: %+v", s)
	}
	if len(s.InternIDs) != 1 || s.InternIDs[0] != env.InternID {
		t.Fatalf("stage interns mismatch: %v", s.InternIDs)
	}
	// accepted agreements are frozen
	_, err = env.Engine.UpdateAgreementDirection(env.Ctx, env.Direction, a.ID, engine.DirectionSectionOptions{ThemeName: strp("new theme")})
	var te fault.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestStageSnapshotIgnoresLaterEdits(t *testing.T) {
	env := newTestEnv(t)
	a := env.openAgreement(t)
	env.completeAgreement(t, a.ID)
	if _, err := env.Engine.DecideAgreement(env.Ctx, env.Admin, a.ID, true); err != nil {
		t.Fatal(err)
	}
	s, err := env.Engine.Repo.GetStageByAgreement(env.Ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	// deactivating the supervisor afterwards does not rewrite the stage
	if _, err := env.Engine.SetPersonFlags(env.Ctx, env.Admin, env.Supervisor.ID, boolp(false), nil); err != nil {
		t.Fatal(err)
	}
	reloaded, err := env.Engine.Repo.GetStage(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.SupervisorID != env.Supervisor.ID {
		t.Fatalf("stage snapshot changed: %+v", reloaded)
	}
}

func TestConventionActivatesStage(t *testing.T) {
	env := newTestEnv(t)
	s := env.activeStage(t)
	if s.Status != domain.StageActive {
		t.Fatalf("expected active, got %s", s.Status)
	}
	// attaching again replaces the document on the existing convention
	c, err := env.Engine.AttachConvention(env.Ctx, env.Supervisor, s.ID, "again.pdf")
	if err != nil {
		t.Fatalf("replace document: %v", err)
	}
	if c.DocumentPath != "again.pdf" {
		t.Fatalf("expected replaced document, got %s", c.DocumentPath)
	}
	if c.Status != domain.ConventionAccepted {
		t.Fatalf("replacement must not reset status, got %s", c.Status)
	}
}

func TestConventionRejectionRequiresComment(t *testing.T) {
	env := newTestEnv(t)
	a := env.openAgreement(t)
	env.completeAgreement(t, a.ID)
	if _, err := env.Engine.DecideAgreement(env.Ctx, env.Admin, a.ID, true); err != nil {
		t.Fatal(err)
	}
	s, _ := env.Engine.Repo.GetStageByAgreement(env.Ctx, a.ID)
	c, err := env.Engine.AttachConvention(env.Ctx, env.Supervisor, s.ID, "convention.pdf")
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.DecideConvention(env.Ctx, env.Admin, c.ID, false, nil)
	var ve fault.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	rejected, err := env.Engine.DecideConvention(env.Ctx, env.Admin, c.ID, false, strp("missing signature"))
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.ConventionRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	// rejection leaves the stage pending
	s, _ = env.Engine.Repo.GetStage(env.Ctx, s.ID)
	if s.Status != domain.StagePending {
		t.Fatalf("expected stage still pending, got %s", s.Status)
	}
}

func TestStageTransitions(t *testing.T) {
	env := newTestEnv(t)
	s := env.activeStage(t)

	// supervisors may only touch their own stages
	other, _ := env.Engine.CreatePerson(env.Ctx, env.Admin, "Sam Stranger", domain.RoleSupervisor)
	_, err := env.Engine.SetStageStatus(env.Ctx, domain.Actor{ID: other.ID, Role: other.Role}, s.ID, domain.StageCompleted)
	var fe fault.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// active -> pending is not a legal move
	_, err = env.Engine.SetStageStatus(env.Ctx, env.Supervisor, s.ID, domain.StagePending)
	var te fault.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected transition error, got %v", err)
	}

	s, err = env.Engine.SetStageStatus(env.Ctx, env.Supervisor, s.ID, domain.StageCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if s.Status != domain.StageCompleted {
		t.Fatalf("expected completed, got %s", s.Status)
	}
	// completed is terminal
	_, err = env.Engine.SetStageStatus(env.Ctx, env.Admin, s.ID, domain.StageCancelled)
	if !errors.As(err, &te) {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestStageExtension(t *testing.T) {
	env := newTestEnv(t)
	s := env.activeStage(t)
	_, err := env.Engine.ExtendStage(env.Ctx, env.Supervisor, s.ID, "2025-05-01")
	var ve fault.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for earlier end date, got %v", err)
	}
	s, err = env.Engine.ExtendStage(env.Ctx, env.Supervisor, s.ID, "2025-09-30")
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if s.Status != domain.StageExtended || s.EndDate != "2025-09-30" {
		t.Fatalf("unexpected stage after extension: %+v", s)
	}
	// an extended stage can still complete
	s, err = env.Engine.SetStageStatus(env.Ctx, env.Supervisor, s.ID, domain.StageCompleted)
	if err != nil || s.Status != domain.StageCompleted {
		t.Fatalf("complete after extension: %v", err)
	}
}

func TestDepositLifecycle(t *testing.T) {
	env := newTestEnv(t)
	s := env.activeStage(t)

	// deposits require a completed stage
	_, err := env.Engine.CreateDeposit(env.Ctx, env.Supervisor, engine.DepositCreateOptions{StageID: s.ID, ThemeLines: []string{"chapter one"}})
	var te fault.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected transition error, got %v", err)
	}
	if _, err := env.Engine.SetStageStatus(env.Ctx, env.Supervisor, s.ID, domain.StageCompleted); err != nil {
		t.Fatal(err)
	}
	d, err := env.Engine.CreateDeposit(env.Ctx, env.Supervisor, engine.DepositCreateOptions{StageID: s.ID, ThemeLines: []string{"chapter one"}})
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}
	if d.SupervisorName != "Sofia Supervisor" {
		t.Fatalf("expected snapshotted supervisor name, got %q", d.SupervisorName)
	}
	if len(d.InternNames) != 1 || d.InternNames[0] != "Iris Intern" {
		t.Fatalf("expected snapshotted intern names, got %v", d.InternNames)
	}

	// archiving before a decision is not allowed
	_, err = env.Engine.ArchiveDeposit(env.Ctx, env.Admin, d.ID)
	if !errors.As(err, &te) {
		t.Fatalf("expected transition error, got %v", err)
	}
	d, err = env.Engine.DecideDeposit(env.Ctx, env.Admin, d.ID, true)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if d.Status != domain.DepositApproved || d.ValidatedBy == nil || *d.ValidatedBy != env.Admin.ID {
		t.Fatalf("unexpected deposit after approval: %+v", d)
	}
	d, err = env.Engine.ArchiveDeposit(env.Ctx, env.Admin, d.ID)
	if err != nil || d.Status != domain.DepositArchived {
		t.Fatalf("archive: %v (%+v)", err, d)
	}
}

func TestDeleteGuards(t *testing.T) {
	env := newTestEnv(t)
	req, err := env.Engine.CreateRequest(env.Ctx, env.Direction, engine.RequestCreateOptions{InternIDs: []int64{env.InternID}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.DecideRequest(env.Ctx, env.Admin, req.ID, true, nil); err != nil {
		t.Fatal(err)
	}
	a, err := env.Engine.Repo.GetAgreementByRequest(env.Ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}

	// a request with a live agreement cannot be deleted
	err = env.Engine.DeleteRequest(env.Ctx, env.Admin, req.ID)
	var ce fault.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// only admins may delete
	err = env.Engine.DeleteAgreement(env.Ctx, env.Direction, a.ID)
	var fe fault.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if err := env.Engine.DeleteAgreement(env.Ctx, env.Admin, a.ID); err != nil {
		t.Fatalf("delete agreement: %v", err)
	}
	if err := env.Engine.DeleteRequest(env.Ctx, env.Admin, req.ID); err != nil {
		t.Fatalf("delete request: %v", err)
	}
	if _, err := env.Engine.Repo.GetRequest(env.Ctx, req.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected request gone, got %v", err)
	}
}

func TestDeleteAgreementWithStageConflicts(t *testing.T) {
	env := newTestEnv(t)
	a := env.openAgreement(t)
	env.completeAgreement(t, a.ID)
	if _, err := env.Engine.DecideAgreement(env.Ctx, env.Admin, a.ID, true); err != nil {
		t.Fatal(err)
	}
	err := env.Engine.DeleteAgreement(env.Ctx, env.Admin, a.ID)
	var ce fault.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestConcurrentRequestDecisionHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	req, err := env.Engine.CreateRequest(env.Ctx, env.Direction, engine.RequestCreateOptions{InternIDs: []int64{env.InternID}})
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.Engine.DecideRequest(env.Ctx, env.Admin, req.ID, true, nil)
		}(i)
	}
	wg.Wait()
	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var te fault.InvalidTransitionError
		if !errors.As(err, &te) {
			t.Fatalf("loser should see a transition error, got %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestConcurrentAgreementAcceptCreatesOneStage(t *testing.T) {
	env := newTestEnv(t)
	a := env.openAgreement(t)
	env.completeAgreement(t, a.ID)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.Engine.DecideAgreement(env.Ctx, env.Direction, a.ID, true)
		}(i)
	}
	wg.Wait()
	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var te fault.InvalidTransitionError
		if !errors.As(err, &te) {
			t.Fatalf("loser should see a transition error, got %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	stages, err := env.Engine.Repo.ListStages(env.Ctx, repo.StageFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(stages) != 1 {
		t.Fatalf("expected exactly one stage, got %d", len(stages))
	}
	if stages[0].AgreementRequestID != a.ID {
		t.Fatalf("stage bound to agreement %d, want %d", stages[0].AgreementRequestID, a.ID)
	}
}

func TestEventsAppendedOnLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.activeStage(t)
	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 50, "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, evt := range events {
		seen[evt.Type] = true
	}
	for _, want := range []string{"request.created", "request.decided", "agreement.opened", "agreement.direction_updated", "agreement.head_updated", "agreement.decided", "stage.created", "convention.created", "convention.decided"} {
		if !seen[want] {
			t.Fatalf("missing event %s in %v", want, events)
		}
	}
}
