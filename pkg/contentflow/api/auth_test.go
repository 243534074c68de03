package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-flow/pkg/contentflow"
)

func TestAuthenticate_AttachesPrincipal(t *testing.T) {
	ja := NewTokenAuth("secret")
	want := contentflow.Principal{ID: uuid.New(), TenantID: uuid.New(), Role: contentflow.RoleStandard}
	token, err := IssueToken(ja, want)
	require.NoError(t, err)

	var got contentflow.Principal
	h := Authenticate(ja)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = contentflow.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, want, got)
}

func TestAuthenticate_MissingTenantClaim(t *testing.T) {
	ja := NewTokenAuth("secret")
	_, token, err := ja.Encode(map[string]interface{}{ClaimSubject: uuid.NewString()})
	require.NoError(t, err)

	called := false
	h := Authenticate(ja)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestPrincipalOf(t *testing.T) {
	id, tenant := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		claims  map[string]interface{}
		wantErr bool
	}{
		{"complete", map[string]interface{}{"sub": id.String(), "tenant_id": tenant.String(), "role": "privileged"}, false},
		{"no role", map[string]interface{}{"sub": id.String(), "tenant_id": tenant.String()}, false},
		{"bad subject", map[string]interface{}{"sub": "alice", "tenant_id": tenant.String()}, true},
		{"numeric tenant", map[string]interface{}{"sub": id.String(), "tenant_id": 42}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := principalOf(tt.claims)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, id, p.ID)
			assert.Equal(t, tenant, p.TenantID)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ja := NewTokenAuth("secret")
	p := contentflow.Principal{ID: uuid.New(), TenantID: uuid.New(), Role: contentflow.RoleStandard}
	token, err := IssueToken(ja, p)
	require.NoError(t, err)

	h := RequestLogger(logger)(Authenticate(ja)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/contents", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Request handled", line["msg"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, p.ID.String(), line["principal_id"])
}
