package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blood-donation/internal/client"
	"blood-donation/internal/config"
	"blood-donation/internal/domain"
	"blood-donation/internal/testutil"
)

func TestRun_Show(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/requests/"+id.String(), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(domain.DonationRequest{ID: id, Status: domain.RequestState{Current: domain.StatusPending}})
	}))
	defer srv.Close()

	cfg := &config.Config{RequestTimezone: "UTC", ClientMutationTimeout: time.Second}
	var out bytes.Buffer
	err := run(context.Background(), cfg, zap.NewNop(), []string{"-api", srv.URL, "show", id.String()}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"current": "pending"`)
}

// apiStub answers the calls requestctl makes for one request: the request
// itself, the caller's account and a single mutation.
type apiStub struct {
	mu       sync.Mutex
	current  *domain.DonationRequest
	after    *domain.DonationRequest
	me       *domain.User
	mutation func(w http.ResponseWriter, r *http.Request)
	calls    []string
}

func (s *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls = append(s.calls, r.Method+" "+r.URL.Path)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/users/me":
		_ = json.NewEncoder(w).Encode(s.me)
	case r.Method == http.MethodGet:
		s.mu.Lock()
		req := s.current
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(req)
	default:
		s.mutation(w, r)
		s.mu.Lock()
		if s.after != nil {
			s.current = s.after
		}
		s.mu.Unlock()
	}
}

func futureRequest(requester domain.Actor) *domain.DonationRequest {
	req := testutil.PendingRequest(requester)
	req.DonationInfo.RequiredDate = time.Now().UTC().AddDate(0, 0, 7).Format(domain.DateLayout)
	return req
}

func TestRun_Update(t *testing.T) {
	requester := testutil.NewUser(domain.RoleDonor, "karim")
	req := futureRequest(requester.Actor())
	edited := req.Clone()
	edited.Recipient.Hospital = "Square Hospital"

	stub := &apiStub{current: req, me: requester}
	stub.mutation = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"hospital": "Square Hospital"}, body)
		_ = json.NewEncoder(w).Encode(edited)
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	cfg := &config.Config{RequestTimezone: "UTC", ClientMutationTimeout: time.Second}
	var out bytes.Buffer
	err := run(context.Background(), cfg, zap.NewNop(),
		[]string{"-api", srv.URL, "-token", "t", "update", req.ID.String(), "-hospital", "Square Hospital"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Square Hospital")
}

func TestRun_StaleWritePrintsCurrentState(t *testing.T) {
	requester := testutil.NewActor(domain.RoleDonor, "karim")
	me := testutil.NewUser(domain.RoleDonor, "bob")
	req := futureRequest(requester)
	taken := testutil.InProgressRequest(requester, testutil.NewActor(domain.RoleDonor, "alice"))
	taken.ID = req.ID
	taken.DonationInfo = req.DonationInfo

	stub := &apiStub{current: req, after: taken, me: me}
	stub.mutation = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
		_ = json.NewEncoder(w).Encode(client.APIError{Code: domain.ErrPreconditionFailed.Code})
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	cfg := &config.Config{RequestTimezone: "UTC", ClientMutationTimeout: time.Second}
	var out bytes.Buffer
	err := run(context.Background(), cfg, zap.NewNop(),
		[]string{"-api", srv.URL, "-token", "t", "donate", req.ID.String()}, &out)

	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.Contains(t, out.String(), "current state of the request:")
	assert.Contains(t, out.String(), `"current": "inprogress"`)
	assert.Contains(t, describe(err), "printed above")

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, "GET /api/v1/requests/"+req.ID.String(), stub.calls[len(stub.calls)-1])
}

func TestParseEdit(t *testing.T) {
	input, err := parseEdit([]string{"-hospital", "DMC", "-info", ""})
	require.NoError(t, err)
	assert.Equal(t, "DMC", *input.Hospital)
	require.NotNil(t, input.AdditionalInfo)
	assert.Empty(t, *input.AdditionalInfo)
	assert.Nil(t, input.RecipientName)

	_, err = parseEdit(nil)
	assert.EqualError(t, err, "update needs at least one edit flag")

	_, err = parseEdit([]string{"-hospital", "DMC", "extra"})
	assert.Error(t, err)
}

func TestRun_BadArguments(t *testing.T) {
	cfg := &config.Config{RequestTimezone: "UTC", ClientMutationTimeout: time.Second}
	var out bytes.Buffer

	assert.Error(t, run(context.Background(), cfg, zap.NewNop(), []string{}, &out))
	assert.EqualError(t, run(context.Background(), cfg, zap.NewNop(), []string{"donate"}, &out), "donate needs exactly one request id")
	assert.EqualError(t, run(context.Background(), cfg, zap.NewNop(), []string{"cancel", "abc"}, &out), `invalid request id "abc"`)
	assert.EqualError(t, run(context.Background(), cfg, zap.NewNop(), []string{"update"}, &out), "update needs exactly one request id")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "invalid hospital: is required", describe(domain.NewValidationError("hospital", "is required")))
	assert.Contains(t, describe(domain.ErrPreconditionFailed), "changed since it was loaded")
	assert.Contains(t, describe(client.ErrOutcomeUnknown), "whether the change was applied")
	assert.Contains(t, describe(fmt.Errorf("%w: dial tcp", client.ErrNetwork)), "cannot reach the API")
	assert.Equal(t, domain.ErrExpired.Message, describe(domain.ErrExpired))
	assert.Equal(t, "the request no longer exists", describe(&client.StaleError{Err: domain.ErrNotFound}))
}
