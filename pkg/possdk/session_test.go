package possdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

// newScopeServer responde listados vacíos y captura el branchId de la última
// petición.
func newScopeServer(t *testing.T) (*httptest.Server, *string) {
	t.Helper()

	var lastBranchID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastBranchID = r.URL.Query().Get("branchId")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)
	return srv, &lastBranchID
}

func adminUser() User {
	return User{ID: 1, Username: "admin", Role: "admin"}
}

func sellerUser() User {
	return User{ID: 2, Username: "vendedor", Role: "seller", BranchID: uintPtr(1)}
}

func TestAdminSendsBranchIDOnlyWhenSelected(t *testing.T) {
	srv, lastBranchID := newScopeServer(t)

	sess := NewClient(srv.URL).NewSessionFromToken("tok", adminUser(), nil)

	_, err := sess.ListSales(context.Background())
	require.NoError(t, err)
	assert.Empty(t, *lastBranchID, "sin selección no debe viajar branchId")

	require.NoError(t, sess.SelectBranch(2))
	_, err = sess.ListSales(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", *lastBranchID)

	require.NoError(t, sess.ClearBranch())
	_, err = sess.ListSales(context.Background())
	require.NoError(t, err)
	assert.Empty(t, *lastBranchID)
}

func TestNonAdminNeverSendsBranchID(t *testing.T) {
	srv, lastBranchID := newScopeServer(t)

	sess := NewClient(srv.URL).NewSessionFromToken("tok", sellerUser(), nil)

	// aunque la aplicación seleccione otra sucursal, la selección no viaja
	require.NoError(t, sess.SelectBranch(2))
	_, err := sess.ListInventory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, *lastBranchID)
}

func TestScopeChangeCallbackFires(t *testing.T) {
	sess := NewClient("http://localhost").NewSessionFromToken("tok", adminUser(), nil)

	var got []*uint
	sess.OnScopeChange(func(branchID *uint) {
		got = append(got, branchID)
	})

	require.NoError(t, sess.SelectBranch(3))
	require.NoError(t, sess.ClearBranch())

	require.Len(t, got, 2)
	require.NotNil(t, got[0])
	assert.Equal(t, uint(3), *got[0])
	assert.Nil(t, got[1])
}

func TestFileScopeStorePersistsSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.json")
	store := NewFileScopeStore(path)

	c := NewClient("http://localhost")

	sess := c.NewSessionFromToken("tok", adminUser(), store)
	require.NoError(t, sess.SelectBranch(4))

	// una sesión nueva del mismo admin restaura la selección
	restored := c.NewSessionFromToken("tok2", adminUser(), store)
	branch := restored.SelectedBranch()
	require.NotNil(t, branch)
	assert.Equal(t, uint(4), *branch)

	// pero una sesión de vendedor no la carga
	seller := c.NewSessionFromToken("tok3", sellerUser(), store)
	assert.Nil(t, seller.SelectedBranch())
}

func TestFileScopeStoreMissingFileIsNoSelection(t *testing.T) {
	store := NewFileScopeStore(filepath.Join(t.TempDir(), "no-existe.json"))
	branch, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, branch)
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Venta no encontrada"}`))
	}))
	t.Cleanup(srv.Close)

	sess := NewClient(srv.URL).NewSessionFromToken("tok", sellerUser(), nil)
	_, err := sess.ListSales(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Venta no encontrada", apiErr.Message)
}
