// Package client talks to the donation request API the way an interactive
// front end does: it checks permission and transition legality locally, sends
// a single attempt, and only ever adopts the request the server returns.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/service/lifecycle"
	"blood-donation/internal/service/search"
)

const basePath = "/api/v1"

type Client struct {
	http            *resty.Client
	machine         *lifecycle.Machine
	mutationTimeout time.Duration
	logger          *zap.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// New builds a client for baseURL. Mutations are never retried; one that
// outlives mutationTimeout reports ErrOutcomeUnknown.
func New(baseURL string, mutationTimeout time.Duration, machine *lifecycle.Machine, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mutationTimeout <= 0 {
		mutationTimeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:            httpClient,
		machine:         machine,
		mutationTimeout: mutationTimeout,
		logger:          logger,
		inFlight:        make(map[uuid.UUID]struct{}),
	}
}

func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

func (c *Client) SetLanguage(lang string) {
	c.http.SetHeader("Accept-Language", lang)
}

func (c *Client) Fetch(ctx context.Context, id uuid.UUID) (*domain.DonationRequest, error) {
	var req domain.DonationRequest
	if err := c.do(ctx, false, http.MethodGet, basePath+"/requests/"+id.String(), nil, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Me returns the account behind the current token. Its Actor is what the local
// checks run against.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, false, http.MethodGet, basePath+"/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Create(ctx context.Context, input domain.CreateDonationRequestInput) (*domain.DonationRequest, error) {
	var req domain.DonationRequest
	if err := c.do(ctx, true, http.MethodPost, basePath+"/requests", input, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *Client) Donate(ctx context.Context, req *domain.DonationRequest, actor domain.Actor) (*domain.DonationRequest, error) {
	return c.command(ctx, req, c.machine.CanDonate(req, actor), "donate")
}

func (c *Client) Complete(ctx context.Context, req *domain.DonationRequest, actor domain.Actor) (*domain.DonationRequest, error) {
	return c.command(ctx, req, c.machine.CanComplete(req, actor), "complete")
}

func (c *Client) Cancel(ctx context.Context, req *domain.DonationRequest, actor domain.Actor) (*domain.DonationRequest, error) {
	return c.command(ctx, req, c.machine.CanCancel(req, actor), "cancel")
}

func (c *Client) Update(ctx context.Context, req *domain.DonationRequest, actor domain.Actor, input domain.UpdateDonationRequestInput) (*domain.DonationRequest, error) {
	if d := c.machine.CanEdit(req, actor); !d.Allowed {
		return nil, d.Err
	}
	if input.IsEmpty() {
		return nil, domain.NewValidationError("body", "no editable fields supplied")
	}

	release, err := c.acquire(req.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out domain.DonationRequest
	if err := c.do(ctx, true, http.MethodPatch, basePath+"/requests/"+req.ID.String(), input, &out); err != nil {
		return nil, c.reconcile(ctx, req.ID, err)
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, req *domain.DonationRequest, actor domain.Actor) error {
	if d := c.machine.CanDelete(req, actor); !d.Allowed {
		return d.Err
	}

	release, err := c.acquire(req.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := c.do(ctx, true, http.MethodDelete, basePath+"/requests/"+req.ID.String(), nil, nil); err != nil {
		return c.reconcile(ctx, req.ID, err)
	}
	return nil
}

func (c *Client) SearchDonors(ctx context.Context, filter search.Filter, page, limit int) (*domain.PaginatedResponse[domain.DonorProfile], error) {
	var out domain.PaginatedResponse[domain.DonorProfile]
	r := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(filter.Query(page, limit)).
		SetResult(&out).
		SetError(&APIError{})

	resp, err := r.Get(basePath + "/donors")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.IsError() {
		apiErr, _ := resp.Error().(*APIError)
		return nil, toError(resp.StatusCode(), apiErr)
	}
	return &out, nil
}

// command sends one of the body-less append-entry commands after the local
// decision allowed it.
func (c *Client) command(ctx context.Context, req *domain.DonationRequest, d lifecycle.Decision, name string) (*domain.DonationRequest, error) {
	if !d.Allowed {
		return nil, d.Err
	}

	release, err := c.acquire(req.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out domain.DonationRequest
	path := fmt.Sprintf("%s/requests/%s/%s", basePath, req.ID, name)
	if err := c.do(ctx, true, http.MethodPost, path, nil, &out); err != nil {
		return nil, c.reconcile(ctx, req.ID, err)
	}
	return &out, nil
}

// reconcile re-fetches a request after the server refused a change because
// the caller's copy was out of date. Other errors pass through unchanged.
func (c *Client) reconcile(ctx context.Context, id uuid.UUID, err error) error {
	if !errors.Is(err, domain.ErrPreconditionFailed) && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	latest, ferr := c.Fetch(ctx, id)
	if ferr != nil && !errors.Is(ferr, domain.ErrNotFound) {
		c.logger.Warn("re-fetch after stale write failed",
			zap.String("request_id", id.String()),
			zap.Error(ferr),
		)
	}
	return &StaleError{Err: err, Latest: latest}
}

func (c *Client) acquire(id uuid.UUID) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return nil, ErrMutationInFlight
	}
	c.inFlight[id] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inFlight, id)
		c.mu.Unlock()
	}, nil
}

func (c *Client) do(ctx context.Context, mutation bool, method, path string, body, result interface{}) error {
	if mutation {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.mutationTimeout)
		defer cancel()
	}

	r := c.http.R().SetContext(ctx).SetError(&APIError{})
	if body != nil {
		r.SetBody(body)
	}
	if result != nil {
		r.SetResult(result)
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		if mutation && isTimeout(ctx, err) {
			c.logger.Warn("mutation outcome unknown",
				zap.String("method", method),
				zap.String("path", path),
				zap.Error(err),
			)
			return ErrOutcomeUnknown
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.IsError() {
		apiErr, _ := resp.Error().(*APIError)
		return toError(resp.StatusCode(), apiErr)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
