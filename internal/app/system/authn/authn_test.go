package authn

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	registrystore "github.com/dalemusser/schoolhub/internal/app/store/registry"
	tenantstore "github.com/dalemusser/schoolhub/internal/app/store/tenants"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func hash(t *testing.T, plain string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

type fakeRegistry struct {
	entries map[string]models.RegistryEntry
	err     error
}

func (f *fakeRegistry) FindActive(_ context.Context, email string) (models.RegistryEntry, error) {
	if f.err != nil {
		return models.RegistryEntry{}, f.err
	}
	e, ok := f.entries[email]
	if !ok {
		return models.RegistryEntry{}, registrystore.ErrNotFound
	}
	return e, nil
}

type fakeAccounts map[string]models.Account

func (f fakeAccounts) FindByEmail(_ context.Context, email string) (models.Account, error) {
	a, ok := f[email]
	if !ok {
		return models.Account{}, accountstore.ErrNotFound
	}
	return a, nil
}

type fakeTenants map[string]models.Tenant

func (f fakeTenants) GetBySchoolID(_ context.Context, id string) (models.Tenant, error) {
	t, ok := f[id]
	if !ok {
		return models.Tenant{}, tenantstore.ErrNotFound
	}
	return t, nil
}

type fakeDirectory struct {
	names map[string]string
	calls int
}

func (f *fakeDirectory) ResolveDatabaseName(_ context.Context, id string) (string, error) {
	f.calls++
	n, ok := f.names[id]
	if !ok {
		return "", apierr.New(apierr.TenantNotFound, "")
	}
	return n, nil
}

type fakeData struct {
	accounts   map[string]map[string]models.Account // databaseName -> email -> account
	subjects   map[string]string
	classes    map[string]models.Class
	subjectErr error
	classErr   error
}

func (f *fakeData) FindAccount(_ context.Context, db, role, email string) (models.Account, error) {
	a, ok := f.accounts[db][email]
	if !ok || a.Role != role {
		return models.Account{}, accountstore.ErrNotFound
	}
	return a, nil
}

func (f *fakeData) SubjectNames(_ context.Context, _ string, ids []string) ([]string, error) {
	if f.subjectErr != nil {
		return nil, f.subjectErr
	}
	out := []string{}
	for _, id := range ids {
		if n, ok := f.subjects[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeData) Class(_ context.Context, _ string, id string) (models.Class, error) {
	if f.classErr != nil {
		return models.Class{}, f.classErr
	}
	c, ok := f.classes[id]
	if !ok {
		return models.Class{}, errors.New("class not found")
	}
	return c, nil
}

type fixture struct {
	svc       *Service
	registry  *fakeRegistry
	tenants   fakeTenants
	directory *fakeDirectory
	data      *fakeData
	issuer    *auth.Issuer
	super     fakeAccounts
	admins    fakeAccounts
}

const (
	schoolDB  = "school_schl00001"
	classHex  = "65a000000000000000000001"
	mathsHex  = "65a000000000000000000011"
	physicsID = "65a000000000000000000012"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	right := hash(t, "right")

	f := &fixture{
		registry: &fakeRegistry{entries: map[string]models.RegistryEntry{}},
		tenants: fakeTenants{
			"SCHL00001": {SchoolID: "SCHL00001", Name: "Greenfield High", DatabaseName: schoolDB, Status: "active"},
			"SCHL00002": {SchoolID: "SCHL00002", Name: "Closed Academy", DatabaseName: "school_schl00002", Status: "inactive"},
		},
		directory: &fakeDirectory{names: map[string]string{
			"SCHL00001": schoolDB,
			"SCHL00002": "school_schl00002",
		}},
		data: &fakeData{
			accounts: map[string]map[string]models.Account{schoolDB: {}, "school_schl00002": {}},
			subjects: map[string]string{mathsHex: "Mathematics", physicsID: "Physics"},
			classes: map[string]models.Class{
				classHex: {Name: "Grade 7", Sections: []models.Section{{ID: "sec-a", Name: "A"}}},
			},
		},
		issuer: auth.NewIssuer("test-secret-at-least-thirty-two-chars!", "schoolhub", time.Hour),
		super:  fakeAccounts{},
		admins: fakeAccounts{},
	}

	reg := func(email, role, school, id string) {
		f.registry.entries[email] = models.RegistryEntry{Email: email, Role: role, SchoolID: school, AccountID: id, Status: "active"}
	}
	tenantAcct := func(db string, a models.Account) {
		a.PasswordHash = right
		f.data.accounts[db][a.Email] = a
	}

	reg("root@platform.com", models.RoleSuperAdmin, "", "SUP00001")
	f.super["root@platform.com"] = models.Account{AccountID: "SUP00001", Email: "root@platform.com", PasswordHash: right, FirstName: "Root"}

	reg("head@school.com", models.RoleSchoolAdmin, "SCHL00001", "ADM00001")
	f.admins["head@school.com"] = models.Account{AccountID: "ADM00001", Email: "head@school.com", PasswordHash: right, Status: "active", SchoolID: "SCHL00001"}

	reg("legacy@school.com", models.RoleSchoolAdmin, "SCHL00001", "ADM00002")
	f.admins["legacy@school.com"] = models.Account{AccountID: "ADM00002", Email: "legacy@school.com", PasswordHash: right}

	reg("t1@school.com", models.RoleTeacher, "SCHL00001", "TCH00001")
	tenantAcct(schoolDB, models.Account{AccountID: "TCH00001", Role: models.RoleTeacher, Email: "t1@school.com", Status: "active",
		FirstName: "Tara", LastName: "Ng", SubjectIDs: []string{mathsHex, physicsID}})

	reg("s1@school.com", models.RoleStudent, "SCHL00001", "STU00001")
	tenantAcct(schoolDB, models.Account{AccountID: "STU00001", Role: models.RoleStudent, Email: "s1@school.com", Status: "active",
		ClassID: classHex, SectionID: "sec-a"})

	reg("p1@school.com", models.RoleParent, "SCHL00001", "PAR00001")
	tenantAcct(schoolDB, models.Account{AccountID: "PAR00001", Role: models.RoleParent, Email: "p1@school.com", Status: "active",
		StudentIDs: []string{"STU00001"}})

	reg("gone@school.com", models.RoleTeacher, "SCHL00001", "TCH00002")
	tenantAcct(schoolDB, models.Account{AccountID: "TCH00002", Role: models.RoleTeacher, Email: "gone@school.com", Status: "inactive"})

	reg("orphan@school.com", models.RoleTeacher, "SCHL00001", "TCH00003")

	reg("t2@closed.com", models.RoleTeacher, "SCHL00002", "TCH00001")
	tenantAcct("school_schl00002", models.Account{AccountID: "TCH00001", Role: models.RoleTeacher, Email: "t2@closed.com", Status: "active"})

	reg("t3@nowhere.com", models.RoleTeacher, "SCHL99999", "TCH00001")

	f.svc = New(Deps{
		Registry:     f.registry,
		SuperAdmins:  f.super,
		SchoolAdmins: f.admins,
		Tenants:      f.tenants,
		Directory:    f.directory,
		Data:         f.data,
		Issuer:       f.issuer,
		Log:          zap.NewNop(),
	})
	return f
}

func TestLogin_TeacherScenario(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Login(context.Background(), "  T1@School.com ", "right")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := f.issuer.Verify(res.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Role != models.RoleTeacher || claims.SchoolID != "SCHL00001" || claims.DatabaseName != schoolDB {
		t.Errorf("claims = %+v", claims)
	}
	if len(claims.SubjectNames) != 2 || claims.SubjectNames[0] != "Mathematics" {
		t.Errorf("SubjectNames = %v", claims.SubjectNames)
	}
	if claims.Email != "t1@school.com" || claims.AccountID != "TCH00001" {
		t.Errorf("identity = %s / %s", claims.Email, claims.AccountID)
	}
	if res.User.SchoolName != "Greenfield High" || res.User.FirstName != "Tara" {
		t.Errorf("summary = %+v", res.User)
	}
}

func TestLogin_CredentialFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)

	render := func(err error) (int, []byte) {
		rec := httptest.NewRecorder()
		apierr.Write(rec, httptest.NewRequest(http.MethodPost, "/login", nil), nil, err)
		return rec.Code, rec.Body.Bytes()
	}

	_, unknownErr := f.svc.Login(context.Background(), "nobody@school.com", "right")
	wantCode, wantBody := render(unknownErr)
	if wantCode != http.StatusUnauthorized {
		t.Fatalf("unknown e-mail status = %d", wantCode)
	}

	cases := map[string][2]string{
		"wrong password":       {"t1@school.com", "wrong"},
		"inactive account":     {"gone@school.com", "right"},
		"registry w/o account": {"orphan@school.com", "right"},
		"school not in dir":    {"t3@nowhere.com", "right"},
		"admin wrong password": {"head@school.com", "wrong"},
		"super wrong password": {"root@platform.com", "wrong"},
		"legacy admin status":  {"legacy@school.com", "right"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), c[0], c[1])
			if !apierr.Is(err, apierr.InvalidCredentials) {
				t.Fatalf("err = %v, want InvalidCredentials", err)
			}
			code, body := render(err)
			if code != wantCode || !bytes.Equal(body, wantBody) {
				t.Errorf("response differs from unknown e-mail:\n got %d %s\nwant %d %s", code, body, wantCode, wantBody)
			}
		})
	}
}

func TestLogin_FailureEvents(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		email, password, event string
	}{
		{"nobody@school.com", "x", audit.EventLoginFailedUnknownEmail},
		{"t1@school.com", "wrong", audit.EventLoginFailedWrongPassword},
		{"gone@school.com", "right", audit.EventLoginFailedInactive},
		{"orphan@school.com", "right", audit.EventLoginFailedAccountMissing},
		{"t2@closed.com", "right", audit.EventLoginFailedTenantInactive},
	}
	for _, tt := range tests {
		_, err := f.svc.Login(context.Background(), tt.email, tt.password)
		var fl *Failure
		if !errors.As(err, &fl) {
			t.Errorf("%s: err %v is not a *Failure", tt.email, err)
			continue
		}
		if fl.Event != tt.event {
			t.Errorf("%s: event = %q, want %q", tt.email, fl.Event, tt.event)
		}
	}
}

func TestLogin_TenantInactive(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Login(context.Background(), "t2@closed.com", "right")
	if !apierr.Is(err, apierr.TenantInactive) {
		t.Fatalf("err = %v, want TenantInactive", err)
	}
	if apierr.HTTPStatus(apierr.KindOf(err)) != http.StatusForbidden {
		t.Error("TenantInactive should render 403")
	}
}

func TestLogin_SchoolAdminOfInactiveTenant(t *testing.T) {
	f := newFixture(t)
	f.tenants["SCHL00001"] = models.Tenant{SchoolID: "SCHL00001", DatabaseName: schoolDB, Status: "inactive"}
	_, err := f.svc.Login(context.Background(), "head@school.com", "right")
	if !apierr.Is(err, apierr.TenantInactive) {
		t.Errorf("err = %v, want TenantInactive", err)
	}
}

func TestLogin_MissingCredentials(t *testing.T) {
	f := newFixture(t)
	for _, c := range [][2]string{{"", "right"}, {"   ", "right"}, {"t1@school.com", ""}} {
		if _, err := f.svc.Login(context.Background(), c[0], c[1]); !apierr.Is(err, apierr.MissingCredentials) {
			t.Errorf("Login(%q, %q) err = %v, want MissingCredentials", c[0], c[1], err)
		}
	}
}

func TestLogin_SuperAdminLegacyStatus(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Login(context.Background(), "root@platform.com", "right")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Claims.Role != models.RoleSuperAdmin || res.Claims.SchoolID != "" || res.Claims.DatabaseName != "" {
		t.Errorf("claims = %+v", res.Claims)
	}
	if f.directory.calls != 0 {
		t.Error("super admin login must not touch the tenant directory")
	}
}

func TestLogin_SchoolAdmin(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Login(context.Background(), "head@school.com", "right")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Claims.SchoolID != "SCHL00001" || res.User.SchoolName != "Greenfield High" {
		t.Errorf("result = %+v", res.User)
	}
}

func TestLogin_StudentEnrichment(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Login(context.Background(), "s1@school.com", "right")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Claims.ClassName != "Grade 7" || res.Claims.SectionName != "A" || res.Claims.ClassID != classHex {
		t.Errorf("claims = %+v", res.Claims)
	}

	f.data.classErr = context.DeadlineExceeded
	res, err = f.svc.Login(context.Background(), "s1@school.com", "right")
	if err != nil {
		t.Fatalf("enrichment failure must not fail login: %v", err)
	}
	if res.Claims.ClassName != classHex || res.Claims.SectionName != "sec-a" {
		t.Errorf("fallback claims = %+v", res.Claims)
	}
}

func TestLogin_TeacherSubjectsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.data.subjectErr = errors.New("subjects unavailable")
	res, err := f.svc.Login(context.Background(), "t1@school.com", "right")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Claims.SubjectNames == nil || len(res.Claims.SubjectNames) != 0 {
		t.Errorf("SubjectNames = %#v, want empty list", res.Claims.SubjectNames)
	}
}

func TestLogin_Parent(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Login(context.Background(), "p1@school.com", "right")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(res.Claims.StudentIDs) != 1 || res.Claims.StudentIDs[0] != "STU00001" {
		t.Errorf("StudentIDs = %v", res.Claims.StudentIDs)
	}
}

func TestLogin_LookupTimeoutIsServiceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.registry.err = context.DeadlineExceeded
	_, err := f.svc.Login(context.Background(), "t1@school.com", "right")
	if !apierr.Is(err, apierr.ServiceUnavailable) {
		t.Errorf("err = %v, want ServiceUnavailable", err)
	}
}

func TestLogin_Idempotent(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Login(context.Background(), "t1@school.com", "right")
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.svc.Login(context.Background(), "t1@school.com", "right")
	if err != nil {
		t.Fatal(err)
	}
	if a.Token == b.Token {
		t.Error("each login should sign a fresh token")
	}
	if a.Claims.Role != b.Claims.Role || a.Claims.SchoolID != b.Claims.SchoolID {
		t.Error("repeated logins should yield equivalent claims")
	}
}
