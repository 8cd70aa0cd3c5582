package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
)

type sampleRequest struct {
	Name       string `json:"name" validate:"required"`
	SupplierID string `json:"supplier_id" validate:"required,uuid"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"supplier_id":"nope"}`))
	var payload sampleRequest
	err := DecodeJSONBody(req, &payload)

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "must be a valid uuid", details["supplier_id"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","supplier_id":"`+uuid.NewString()+`","extra":1}`))
	var payload sampleRequest
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &payload), pkgerrors.CodeValidation))
}

func TestQueryParsers(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-10-01&to=2026-10-19T10:00:00Z&quantity=2.5&active=false&supplier_id="+id.String()+"&status=sent,confirmed&status=draft", nil)

	from, err := ParseQueryTime(req, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *from)

	to, err := ParseQueryTime(req, "to")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), *to)

	qty, err := ParseQueryDecimal(req, "quantity")
	require.NoError(t, err)
	assert.Equal(t, "2.5", qty.String())

	active, err := ParseQueryBool(req, "active", true)
	require.NoError(t, err)
	assert.False(t, active)

	supplier, err := ParseQueryUUID(req, "supplier_id")
	require.NoError(t, err)
	assert.Equal(t, id, *supplier)

	assert.Equal(t, []string{"sent", "confirmed", "draft"}, ParseQueryList(req, "status"))

	missing, err := ParseQueryTime(req, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	bad := httptest.NewRequest(http.MethodGet, "/?from=yesterday", nil)
	_, err = ParseQueryTime(bad, "from")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := PathUUID(req, "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = PathUUID(req, "recipeId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
