package roster

import (
	"context"
	"errors"
	"net/http"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/enroll"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/learner"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	"github.com/dalemusser/schoolhub/internal/app/system/passwords"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// createRequest carries the union of role fields; fields that do not
// belong to the mounted role are ignored.
type createRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"notblank,max=100"`
	LastName  string `json:"lastName" validate:"notblank,max=100"`
	Phone     string `json:"phone" validate:"max=40"`

	SubjectIDs []string `json:"subjects"`
	ClassIDs   []string `json:"classes"`

	ClassID    string `json:"classId"`
	SectionID  string `json:"sectionId"`
	RollNumber string `json:"rollNumber" validate:"max=20"`
	ParentID   string `json:"parentId"`

	StudentIDs []string `json:"studentIds"`
}

// updateRequest changes only the fields present. E-mail is immutable.
type updateRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,notblank,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,notblank,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`

	SubjectIDs *[]string `json:"subjects"`
	ClassIDs   *[]string `json:"classes"`

	ClassID    *string `json:"classId"`
	SectionID  *string `json:"sectionId"`
	RollNumber *string `json:"rollNumber" validate:"omitempty,max=20"`
	ParentID   *string `json:"parentId"`

	StudentIDs *[]string `json:"studentIds"`
}

type accounts struct {
	*Handler
	role string
}

func (a accounts) store(r *http.Request) (*accountstore.Store, *tenant.Scope, error) {
	sc, ok := tenant.FromRequest(r)
	if !ok {
		return nil, nil, apierr.New(apierr.Internal, "")
	}
	return accountstore.New(sc.DB, a.role), sc, nil
}

// List handles GET /?status=&q=&classId=&sectionId=&limit=&offset=.
func (a accounts) List(w http.ResponseWriter, r *http.Request) {
	store, _, err := a.store(r)
	if err != nil {
		apierr.Write(w, r, a.Log, err)
		return
	}
	st := normalize.Status(query.Get(r, "status"))
	if st != "" && !status.IsValid(st) {
		apierr.Write(w, r, a.Log, apierr.New(apierr.InvalidArgument, "status must be active or inactive."))
		return
	}
	page := paging.Parse(r)
	f := accountstore.ListFilter{
		Status: st,
		Search: normalize.QueryParam(query.Get(r, "q")),
		Limit:  page.Limit,
		Skip:   page.Skip,
	}
	if a.role == models.RoleStudent {
		f.ClassID = normalize.QueryParam(query.Get(r, "classId"))
		f.SectionID = normalize.QueryParam(query.Get(r, "sectionId"))
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), a.Log, "list "+a.role+"s")
	defer cancel()

	rows, total, err := store.List(ctx, f)
	if err != nil {
		apierr.Write(w, r, a.Log, storeErr(err))
		return
	}
	httpx.List(w, rows, total)
}

// Get handles GET /{accountId}.
func (a accounts) Get(w http.ResponseWriter, r *http.Request) {
	store, sc, err := a.store(r)
	if err != nil {
		apierr.Write(w, r, a.Log, err)
		return
	}
	id := normalize.AccountID(chi.URLParam(r, "accountId"))
	c, _ := auth.CurrentClaims(r)
	if c == nil {
		apierr.Write(w, r, a.Log, apierr.New(apierr.Unauthorized, ""))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), a.Log, "get "+a.role)
	defer cancel()

	allowed := canView(c, a.role, id)
	if !allowed && c.Role == models.RoleParent && a.role == models.RoleStudent {
		if allowed, err = learner.Linked(ctx, sc.DB, c, id); err != nil {
			apierr.Write(w, r, a.Log, err)
			return
		}
	}
	if !allowed {
		apierr.Write(w, r, a.Log, apierr.New(apierr.Forbidden, ""))
		return
	}

	acct, err := store.GetByAccountID(ctx, id)
	if err != nil {
		apierr.Write(w, r, a.Log, storeErr(err))
		return
	}
	httpx.OK(w, acct)
}

// Create handles POST /. The account and its registry entry are created
// together; the id is the school's next sequential id for the role.
func (a accounts) Create(w http.ResponseWriter, r *http.Request) {
	_, sc, err := a.store(r)
	if err != nil {
		apierr.Write(w, r, a.Log, err)
		return
	}
	var req createRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, a.Log, err)
		return
	}

	acct := models.Account{
		FirstName: normalize.Name(req.FirstName),
		LastName:  normalize.Name(req.LastName),
		Phone:     normalize.QueryParam(req.Phone),
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), a.Log, "create "+a.role)
	defer cancel()

	ref := refs{db: sc.DB}
	switch a.role {
	case models.RoleTeacher:
		if err := ref.subjects(ctx, req.SubjectIDs); err != nil {
			apierr.Write(w, r, a.Log, err)
			return
		}
		if err := ref.classes(ctx, req.ClassIDs); err != nil {
			apierr.Write(w, r, a.Log, err)
			return
		}
		acct.SubjectIDs = uniq(req.SubjectIDs)
		acct.ClassIDs = uniq(req.ClassIDs)
	case models.RoleStudent:
		if err := ref.placement(ctx, req.ClassID, req.SectionID); err != nil {
			apierr.Write(w, r, a.Log, err)
			return
		}
		if err := ref.parent(ctx, req.ParentID); err != nil {
			apierr.Write(w, r, a.Log, err)
			return
		}
		acct.ClassID = req.ClassID
		acct.SectionID = req.SectionID
		acct.RollNumber = normalize.QueryParam(req.RollNumber)
		acct.ParentID = req.ParentID
	case models.RoleParent:
		if err := ref.accounts(ctx, models.RoleStudent, "studentIds", uniq(req.StudentIDs)); err != nil {
			apierr.Write(w, r, a.Log, err)
			return
		}
		acct.StudentIDs = uniq(req.StudentIDs)
	}

	created, err := a.Enroll.Create(ctx, enroll.Request{
		Role:     a.role,
		SchoolID: sc.SchoolID,
		Email:    req.Email,
		Password: req.Password,
		Account:  acct,
		DB:       sc.DB,
	})
	if err != nil {
		apierr.Write(w, r, a.Log, err)
		return
	}

	a.Log.Info("account created",
		zap.String("school_id", sc.SchoolID),
		zap.String("role", a.role),
		zap.String("account_id", created.AccountID))
	a.AuditLog.AdminAction(ctx, r, audit.EventAccountCreated, actorID(r), sc.SchoolID, created.AccountID,
		map[string]string{"role": a.role})

	httpx.Created(w, created)
}

// Update handles PUT /{accountId}.
func (a accounts) Update(w http.ResponseWriter, r *http.Request) {
	store, sc, err := a.store(r)
	if err != nil {
		apierr.Write(w, r, a.Log, err)
		return
	}
	id := normalize.AccountID(chi.URLParam(r, "accountId"))
	var req updateRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		apierr.Write(w, r, a.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), a.Log, "update "+a.role)
	defer cancel()

	u, err := a.buildUpdate(ctx, req, refs{db: sc.DB}, store, id)
	if err != nil {
		apierr.Write(w, r, a.Log, err)
		return
	}
	updated, err := store.Update(ctx, id, u)
	if err != nil {
		apierr.Write(w, r, a.Log, storeErr(err))
		return
	}

	details := map[string]string{"role": a.role}
	if req.Password != nil {
		details["password_changed"] = "true"
	}
	a.AuditLog.AdminAction(ctx, r, audit.EventAccountUpdated, actorID(r), sc.SchoolID, id, details)
	httpx.OK(w, updated)
}

// buildUpdate validates req against the role and the school's records.
func (a accounts) buildUpdate(ctx context.Context, req updateRequest, ref refs, store *accountstore.Store, id string) (accountstore.Update, error) {
	u := accountstore.Update{
		FirstName: trimmed(req.FirstName, normalize.Name),
		LastName:  trimmed(req.LastName, normalize.Name),
		Phone:     trimmed(req.Phone, normalize.QueryParam),
	}
	if req.Password != nil {
		hash, err := passwords.Hash(*req.Password)
		switch {
		case errors.Is(err, passwords.ErrTooShort):
			return u, invalid("password", "Password must be at least 8 characters.")
		case errors.Is(err, passwords.ErrTooLong):
			return u, invalid("password", "Password must be at most 72 bytes.")
		case err != nil:
			return u, apierr.Wrap(apierr.Internal, "", err)
		}
		u.PasswordHash = &hash
	}

	switch a.role {
	case models.RoleTeacher:
		if req.SubjectIDs != nil {
			if err := ref.subjects(ctx, *req.SubjectIDs); err != nil {
				return u, err
			}
			ids := uniq(*req.SubjectIDs)
			u.SubjectIDs = &ids
		}
		if req.ClassIDs != nil {
			if err := ref.classes(ctx, *req.ClassIDs); err != nil {
				return u, err
			}
			ids := uniq(*req.ClassIDs)
			u.ClassIDs = &ids
		}
	case models.RoleStudent:
		if req.ClassID != nil || req.SectionID != nil {
			current, err := store.GetByAccountID(ctx, id)
			if err != nil {
				return u, storeErr(err)
			}
			classID, sectionID := current.ClassID, current.SectionID
			if req.ClassID != nil {
				classID = *req.ClassID
				if req.SectionID == nil && classID != current.ClassID {
					sectionID = ""
				}
			}
			if req.SectionID != nil {
				sectionID = *req.SectionID
			}
			if err := ref.placement(ctx, classID, sectionID); err != nil {
				return u, err
			}
			u.ClassID = &classID
			u.SectionID = &sectionID
		}
		if req.ParentID != nil {
			if err := ref.parent(ctx, *req.ParentID); err != nil {
				return u, err
			}
			u.ParentID = req.ParentID
		}
		u.RollNumber = trimmed(req.RollNumber, normalize.QueryParam)
	case models.RoleParent:
		if req.StudentIDs != nil {
			ids := uniq(*req.StudentIDs)
			if err := ref.accounts(ctx, models.RoleStudent, "studentIds", ids); err != nil {
				return u, err
			}
			u.StudentIDs = &ids
		}
	}
	return u, nil
}

// Deactivate handles DELETE /{accountId}: the account is marked inactive
// and its e-mail is released for reuse.
func (a accounts) Deactivate(w http.ResponseWriter, r *http.Request) {
	_, sc, err := a.store(r)
	if err != nil {
		apierr.Write(w, r, a.Log, err)
		return
	}
	id := normalize.AccountID(chi.URLParam(r, "accountId"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), a.Log, "deactivate "+a.role)
	defer cancel()

	if err := a.Enroll.Deactivate(ctx, a.role, sc.SchoolID, id, sc.DB); err != nil {
		apierr.Write(w, r, a.Log, err)
		return
	}
	a.AuditLog.AdminAction(ctx, r, audit.EventAccountDeactivated, actorID(r), sc.SchoolID, id,
		map[string]string{"role": a.role})
	httpx.Done(w)
}

func trimmed(v *string, norm func(string) string) *string {
	if v == nil {
		return nil
	}
	s := norm(*v)
	return &s
}
