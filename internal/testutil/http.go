package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// SuperAdmin returns claims for a platform operator.
func SuperAdmin() *auth.Claims {
	return &auth.Claims{AccountID: "SUP00001", Email: "root@schoolhub.test", Role: models.RoleSuperAdmin}
}

// SchoolAdmin returns claims for the administrator of schoolID.
func SchoolAdmin(schoolID string) *auth.Claims {
	return &auth.Claims{AccountID: "ADM00001", Email: "admin@school.test", Role: models.RoleSchoolAdmin, SchoolID: schoolID}
}

// Teacher returns claims for a teacher at schoolID.
func Teacher(schoolID string) *auth.Claims {
	return &auth.Claims{AccountID: "TCH00001", Email: "teacher@school.test", Role: models.RoleTeacher, SchoolID: schoolID}
}

// Student returns claims for a student at schoolID.
func Student(schoolID string) *auth.Claims {
	return &auth.Claims{AccountID: "STU00001", Email: "student@school.test", Role: models.RoleStudent, SchoolID: schoolID}
}

// Parent returns claims for a parent at schoolID whose children are studentIDs.
func Parent(schoolID string, studentIDs ...string) *auth.Claims {
	return &auth.Claims{
		AccountID:  "PAR00001",
		Email:      "parent@school.test",
		Role:       models.RoleParent,
		SchoolID:   schoolID,
		StudentIDs: studentIDs,
	}
}

// WithClaims attaches verified claims to the request, bypassing token
// verification.
func WithClaims(r *http.Request, c *auth.Claims) *http.Request {
	return r.WithContext(auth.WithClaims(r.Context(), c))
}

// Scoped is test middleware standing in for token verification and
// tenant resolution: it attaches c (when non-nil) and db as the school
// database of schoolID.
func Scoped(c *auth.Claims, schoolID string, db *mongo.Database) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c != nil {
				r = WithClaims(r, c)
			}
			sc := &tenant.Scope{SchoolID: schoolID, DatabaseName: db.Name(), DB: db}
			next.ServeHTTP(w, r.WithContext(tenant.WithScope(r.Context(), sc)))
		})
	}
}

// NewJSONRequest builds a request whose body is payload encoded as JSON.
// A string payload is sent verbatim.
func NewJSONRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	var body *bytes.Buffer
	switch p := payload.(type) {
	case nil:
		body = &bytes.Buffer{}
	case string:
		body = bytes.NewBufferString(p)
	default:
		body = &bytes.Buffer{}
		if err := json.NewEncoder(body).Encode(p); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t testing.TB, expected int) {
	t.Helper()
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t testing.TB, expected string) {
	t.Helper()
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// Decode unmarshals the JSON body into dst.
func (r *ResponseRecorder) Decode(t testing.TB, dst any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", r.Body.String(), err)
	}
}

// Envelope is the success shape of resource responses, with Data left raw.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Total   *int64          `json:"total"`
	Message string          `json:"message"`
	Kind    string          `json:"errorKind"`
}

// DecodeData unwraps {success, data} and unmarshals data into dst.
func (r *ResponseRecorder) DecodeData(t testing.TB, dst any) Envelope {
	t.Helper()
	var env Envelope
	r.Decode(t, &env)
	if dst != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return env
}

// ServeScoped runs one JSON request against h as c inside schoolID's
// database.
func ServeScoped(t *testing.T, h http.Handler, c *auth.Claims, schoolID string, db *mongo.Database, method, target string, body any) *ResponseRecorder {
	t.Helper()
	rec := NewRecorder()
	Scoped(c, schoolID, db)(h).ServeHTTP(rec, NewJSONRequest(t, method, target, body))
	return rec
}
