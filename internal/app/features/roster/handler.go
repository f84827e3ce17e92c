// Package roster serves a school's teachers, students and parents. One
// Handler serves all three; the role is fixed per mounted router.
package roster

import (
	"errors"
	"net/http"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auditlog"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/dalemusser/schoolhub/internal/app/system/enroll"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Enroll   *enroll.Enroller
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler wires the roster handler. platformDB holds the e-mail
// registry that new accounts are entered into.
func NewHandler(platformDB *mongo.Database, al *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Enroll:   enroll.New(platformDB, logger),
		AuditLog: al,
		Log:      logger,
	}
}

// canView reports whether c may read the role account accountID without a
// lookup: staff read everyone, students and parents read themselves.
// Parents reading a child are checked against the stored link by Get.
func canView(c *auth.Claims, role, accountID string) bool {
	if authz.IsStaff(c) {
		return true
	}
	if c.Role == role && c.AccountID == accountID {
		return true
	}
	return role == models.RoleStudent && authz.CanViewStudent(c, accountID)
}

func storeErr(err error) error {
	if errors.Is(err, accountstore.ErrNotFound) {
		return apierr.Wrap(apierr.NotFound, "Account not found.", err)
	}
	if errors.Is(err, accountstore.ErrDuplicate) {
		return apierr.Wrap(apierr.Conflict, "This email is already in use.", err)
	}
	return apierr.FromStore(err)
}

func invalid(field, msg string) error {
	e := apierr.New(apierr.InvalidArgument, msg)
	e.Fields = map[string]string{field: msg}
	return e
}

func actorID(r *http.Request) string {
	if c, ok := auth.CurrentClaims(r); ok {
		return c.AccountID
	}
	return ""
}
