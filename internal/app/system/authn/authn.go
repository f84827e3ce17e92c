// Package authn implements the single login path shared by every role.
//
// The e-mail registry says which role (and which school) owns an e-mail;
// a role table then says where that role's accounts live and what extra
// claims its token carries. Every credential failure surfaces as the same
// InvalidCredentials error so callers cannot tell which check failed.
package authn

import (
	"context"
	"errors"
	"strings"
	"time"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	registrystore "github.com/dalemusser/schoolhub/internal/app/store/registry"
	tenantstore "github.com/dalemusser/schoolhub/internal/app/store/tenants"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/metrics"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/passwords"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.uber.org/zap"
)

// Registry finds the active registry entry for a normalized e-mail and
// returns registrystore.ErrNotFound when there is none.
type Registry interface {
	FindActive(ctx context.Context, email string) (models.RegistryEntry, error)
}

// Accounts finds an account by normalized e-mail and returns
// accountstore.ErrNotFound when there is none.
type Accounts interface {
	FindByEmail(ctx context.Context, email string) (models.Account, error)
}

// Tenants reads tenant records; tenantstore.ErrNotFound when missing.
type Tenants interface {
	GetBySchoolID(ctx context.Context, schoolID string) (models.Tenant, error)
}

// Directory resolves a school id to its database name.
type Directory interface {
	ResolveDatabaseName(ctx context.Context, schoolID string) (string, error)
}

// TenantData reads from a school's own database.
type TenantData interface {
	FindAccount(ctx context.Context, databaseName, role, email string) (models.Account, error)
	SubjectNames(ctx context.Context, databaseName string, subjectIDs []string) ([]string, error)
	Class(ctx context.Context, databaseName, classID string) (models.Class, error)
}

// Deps wires a Service.
type Deps struct {
	Registry     Registry
	SuperAdmins  Accounts
	SchoolAdmins Accounts
	Tenants      Tenants
	Directory    Directory
	Data         TenantData
	Issuer       *auth.Issuer
	Log          *zap.Logger
}

type Service struct {
	registry  Registry
	global    map[string]Accounts
	tenants   Tenants
	directory Directory
	data      TenantData
	issuer    *auth.Issuer
	log       *zap.Logger
}

func New(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		registry: d.Registry,
		global: map[string]Accounts{
			models.RoleSuperAdmin:  d.SuperAdmins,
			models.RoleSchoolAdmin: d.SchoolAdmins,
		},
		tenants:   d.Tenants,
		directory: d.Directory,
		data:      d.Data,
		issuer:    d.Issuer,
		log:       log,
	}
}

// Summary is the display-oriented description of the signed-in account.
type Summary struct {
	AccountID  string `json:"accountId"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       string `json:"role"`
	SchoolID   string `json:"schoolId,omitempty"`
	SchoolName string `json:"schoolName,omitempty"`
}

// Result is a successful login.
type Result struct {
	Token     string
	ExpiresAt time.Time
	User      Summary
	Claims    *auth.Claims
}

// Failure annotates a login error with the audit event and internal reason
// behind it. The wrapped *apierr.Error is what the caller sees.
type Failure struct {
	Event  string
	Reason string
	err    *apierr.Error
}

func (f *Failure) Error() string { return f.err.Error() }
func (f *Failure) Unwrap() error { return f.err }

// Fail builds a Failure that reports err to the client.
func Fail(event, reason string, err *apierr.Error) error {
	return &Failure{Event: event, Reason: reason, err: err}
}

func badCredentials(event, reason string) error {
	return Fail(event, reason, apierr.New(apierr.InvalidCredentials, apierr.InvalidCredentialsMessage))
}

func unavailable(op string, err error) error {
	var e *apierr.Error
	if !errors.As(apierr.FromStore(err), &e) {
		e = apierr.Wrap(apierr.Internal, "", err)
	}
	return Fail(audit.EventLoginFailedUnavailable, op+": "+err.Error(), e)
}

type scope int

const (
	scopeGlobal scope = iota
	scopeTenant
)

type enricher func(s *Service, ctx context.Context, databaseName string, a models.Account, c *auth.Claims)

// roleSpec describes where a role's accounts live and how its token is built.
type roleSpec struct {
	scope scope
	// strictStatus rejects accounts whose status is unset.
	strictStatus bool
	// needsTenant requires the owning school to be active.
	needsTenant bool
	enrich      enricher
}

var roleTable = map[string]roleSpec{
	models.RoleSuperAdmin:  {scope: scopeGlobal},
	models.RoleSchoolAdmin: {scope: scopeGlobal, strictStatus: true, needsTenant: true},
	models.RoleTeacher:     {scope: scopeTenant, strictStatus: true, needsTenant: true, enrich: (*Service).enrichTeacher},
	models.RoleStudent:     {scope: scopeTenant, strictStatus: true, needsTenant: true, enrich: (*Service).enrichStudent},
	models.RoleParent:      {scope: scopeTenant, strictStatus: true, needsTenant: true, enrich: (*Service).enrichParent},
}

// Login authenticates email/password and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	res, err := s.login(ctx, email, password)
	outcome := "success"
	if err != nil {
		outcome = string(apierr.KindOf(err))
	}
	metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	return res, err
}

func (s *Service) login(ctx context.Context, rawEmail, password string) (Result, error) {
	email := normalize.Email(rawEmail)
	if email == "" || password == "" {
		return Result{}, apierr.New(apierr.MissingCredentials, "")
	}

	entry, err := s.findEntry(ctx, email)
	if errors.Is(err, registrystore.ErrNotFound) {
		passwords.Burn(password)
		return Result{}, badCredentials(audit.EventLoginFailedUnknownEmail, "no active registry entry")
	}
	if err != nil {
		return Result{}, unavailable("registry lookup", err)
	}

	spec, ok := roleTable[entry.Role]
	if !ok {
		passwords.Burn(password)
		return Result{}, badCredentials(audit.EventLoginFailedAccountMissing, "unknown role "+entry.Role)
	}

	var databaseName string
	if spec.scope == scopeTenant {
		databaseName, err = s.resolve(ctx, entry.SchoolID)
		if apierr.Is(err, apierr.TenantNotFound) || apierr.Is(err, apierr.InvalidArgument) {
			passwords.Burn(password)
			return Result{}, badCredentials(audit.EventLoginFailedAccountMissing, "school "+entry.SchoolID+" not in directory")
		}
		if err != nil {
			return Result{}, unavailable("tenant resolution", err)
		}
	}

	acct, err := s.findAccount(ctx, spec, entry.Role, databaseName, email)
	if errors.Is(err, accountstore.ErrNotFound) {
		passwords.Burn(password)
		return Result{}, badCredentials(audit.EventLoginFailedAccountMissing, "registry entry without account")
	}
	if err != nil {
		return Result{}, unavailable("account lookup", err)
	}

	if !statusAllowed(acct.Status, spec.strictStatus) {
		passwords.Burn(password)
		return Result{}, badCredentials(audit.EventLoginFailedInactive, "account status "+acct.Status)
	}

	var tenant models.Tenant
	if spec.needsTenant {
		tenant, err = s.findTenant(ctx, entry.SchoolID)
		if errors.Is(err, tenantstore.ErrNotFound) {
			passwords.Burn(password)
			return Result{}, badCredentials(audit.EventLoginFailedAccountMissing, "school "+entry.SchoolID+" has no tenant record")
		}
		if err != nil {
			return Result{}, unavailable("tenant lookup", err)
		}
		if !tenant.IsActive() {
			return Result{}, Fail(audit.EventLoginFailedTenantInactive, "school "+entry.SchoolID+" inactive",
				apierr.New(apierr.TenantInactive, ""))
		}
	}

	if !passwords.Check(acct.PasswordHash, password) {
		return Result{}, badCredentials(audit.EventLoginFailedWrongPassword, "password mismatch")
	}

	accountID := acct.AccountID
	if accountID == "" {
		accountID = entry.AccountID
	}
	claims := &auth.Claims{AccountID: accountID, Email: email, Role: entry.Role}
	if entry.SchoolID != "" && entry.Role != models.RoleSuperAdmin {
		claims.SchoolID = entry.SchoolID
	}
	if spec.scope == scopeTenant {
		claims.DatabaseName = databaseName
	}
	if spec.enrich != nil {
		spec.enrich(s, ctx, databaseName, acct, claims)
	}

	token, exp, err := s.issuer.Sign(*claims)
	if err != nil {
		return Result{}, Fail(audit.EventLoginFailedUnavailable, "token signing",
			apierr.Wrap(apierr.Internal, "", err))
	}

	return Result{
		Token:     token,
		ExpiresAt: exp,
		Claims:    claims,
		User: Summary{
			AccountID:  accountID,
			Email:      email,
			FirstName:  acct.FirstName,
			LastName:   acct.LastName,
			Role:       entry.Role,
			SchoolID:   claims.SchoolID,
			SchoolName: tenant.Name,
		},
	}, nil
}

func statusAllowed(st string, strict bool) bool {
	st = strings.TrimSpace(st)
	if st == status.Active {
		return true
	}
	return st == "" && !strict
}

func (s *Service) findEntry(ctx context.Context, email string) (models.RegistryEntry, error) {
	lctx, cancel := timeouts.WithTimeout(ctx, timeouts.Lookup(), s.log, "registry lookup")
	defer cancel()
	return s.registry.FindActive(lctx, email)
}

func (s *Service) resolve(ctx context.Context, schoolID string) (string, error) {
	lctx, cancel := timeouts.WithTimeout(ctx, timeouts.Lookup(), s.log, "tenant resolution")
	defer cancel()
	return s.directory.ResolveDatabaseName(lctx, schoolID)
}

func (s *Service) findTenant(ctx context.Context, schoolID string) (models.Tenant, error) {
	lctx, cancel := timeouts.WithTimeout(ctx, timeouts.Lookup(), s.log, "tenant lookup")
	defer cancel()
	return s.tenants.GetBySchoolID(lctx, schoolID)
}

func (s *Service) findAccount(ctx context.Context, spec roleSpec, role, databaseName, email string) (models.Account, error) {
	lctx, cancel := timeouts.WithTimeout(ctx, timeouts.Lookup(), s.log, "account lookup")
	defer cancel()
	if spec.scope == scopeTenant {
		return s.data.FindAccount(lctx, databaseName, role, email)
	}
	store := s.global[role]
	if store == nil {
		return models.Account{}, accountstore.ErrNotFound
	}
	return store.FindByEmail(lctx, email)
}

// Enrichment is best-effort: a failed lookup degrades the claim, never the login.

func (s *Service) enrichTeacher(ctx context.Context, databaseName string, a models.Account, c *auth.Claims) {
	c.SubjectNames = []string{}
	if len(a.SubjectIDs) == 0 {
		return
	}
	lctx, cancel := timeouts.WithTimeout(ctx, timeouts.Lookup(), s.log, "subject names")
	defer cancel()
	names, err := s.data.SubjectNames(lctx, databaseName, a.SubjectIDs)
	if err != nil {
		s.log.Warn("subject names unavailable for token",
			zap.String("account_id", a.AccountID), zap.Error(err))
		return
	}
	c.SubjectNames = names
}

func (s *Service) enrichStudent(ctx context.Context, databaseName string, a models.Account, c *auth.Claims) {
	c.ClassID = a.ClassID
	c.ClassName = a.ClassID
	c.SectionName = a.SectionID
	if a.ClassID == "" {
		return
	}
	lctx, cancel := timeouts.WithTimeout(ctx, timeouts.Lookup(), s.log, "class lookup")
	defer cancel()
	class, err := s.data.Class(lctx, databaseName, a.ClassID)
	if err != nil {
		s.log.Warn("class name unavailable for token",
			zap.String("account_id", a.AccountID), zap.String("class_id", a.ClassID), zap.Error(err))
		return
	}
	c.ClassName = class.Name
	if name, ok := class.SectionName(a.SectionID); ok {
		c.SectionName = name
	}
}

func (s *Service) enrichParent(_ context.Context, _ string, a models.Account, c *auth.Claims) {
	c.StudentIDs = append([]string{}, a.StudentIDs...)
}
