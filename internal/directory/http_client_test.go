package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/chaterr"
)

func newDirectoryServer(t *testing.T) (*HTTPClient, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/internal/users/42", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(User{ID: 42, DisplayName: "Sam", Role: RoleSolo})
	})
	mux.HandleFunc("/internal/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10,20", r.URL.Query().Get("ids"))
		json.NewEncoder(w).Encode(map[string][]User{"users": {
			{ID: 10, DisplayName: "Sam", Role: RoleSolo},
			{ID: 20, DisplayName: "Rep", Role: RoleRep, CompanyID: 30},
		}})
	})
	mux.HandleFunc("/internal/companies/30", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Company{ID: 30, Name: "Acme", BusinessType: "agency"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL), srv
}

func TestGetUser(t *testing.T) {
	client, _ := newDirectoryServer(t)

	user, err := client.GetUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Sam", user.DisplayName)
	assert.Equal(t, RoleSolo, user.Role)
}

func TestGetUserNotFound(t *testing.T) {
	client, _ := newDirectoryServer(t)

	_, err := client.GetUser(context.Background(), 999)
	require.ErrorIs(t, err, chaterr.ErrUserNotFound)
}

func TestBulkUsers(t *testing.T) {
	client, _ := newDirectoryServer(t)

	users, err := client.BulkUsers(context.Background(), []int64{10, 20})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(30), users[1].CompanyID)
}

func TestBulkUsersEmptyInput(t *testing.T) {
	client := NewHTTPClient("http://directory.invalid")

	users, err := client.BulkUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users, "no request is made for an empty id list")
}

func TestGetCompany(t *testing.T) {
	client, _ := newDirectoryServer(t)

	company, err := client.GetCompany(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, "Acme", company.Name)
}
