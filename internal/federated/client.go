// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package federated implements a client for a GoTrue-compatible identity provider.

Each browser client owns one [Client]: it keeps that client's provider session
in the client's local state namespace, refreshes it before expiry, and reports
session changes to subscribers.

Architecture:

  - Transport: Plain JSON over HTTP, authenticated with the project's anon key.
  - Persistence: The session is stored under one key through [Storage].
  - Notifications: Events are delivered in arrival order from one dispatcher goroutine.
*/
package federated

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

// # Defaults

const (
	// DefaultRefreshMargin refreshes the session this long before it expires.
	DefaultRefreshMargin = 60 * time.Second

	// DefaultMinRefreshDelay is the shortest gap between two timer-driven refreshes.
	DefaultMinRefreshDelay = 5 * time.Second

	// DefaultHTTPTimeout bounds every provider request.
	DefaultHTTPTimeout = 10 * time.Second

	// storageKey is the key the client owns inside its namespace.
	storageKey = "federated"

	// backgroundRefreshTimeout bounds timer-driven refreshes.
	backgroundRefreshTimeout = 15 * time.Second
)

// # Errors

var (
	// ErrInvalidCredentials is returned when the provider rejects an email/password pair.
	ErrInvalidCredentials = errors.New("federated: invalid login credentials")

	// ErrDisabled is returned by [Disabled] for every action.
	ErrDisabled = errors.New("federated: provider not configured")
)

// APIError is a non-2xx provider response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("federated: provider returned %d %s: %s", e.Status, e.Code, e.Message)
}

// Rejected reports whether the provider refused the request itself (4xx).
func (e *APIError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}

// # Contracts

// Storage is the client's view of its persisted local state.
//
// Get returns (nil, nil) when the key is absent.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Config holds the provider endpoint and shared transport settings.
type Config struct {
	BaseURL       string
	AnonKey       string
	HTTPClient    *http.Client
	RefreshMargin time.Duration

	// MinRefreshDelay floors the refresh timer; zero means [DefaultMinRefreshDelay].
	MinRefreshDelay time.Duration

	Now func() time.Time
}

// listener is one subscriber registered through OnSessionChange.
type listener struct {
	id int
	fn func(Event)
}

// Client is one browser client's connection to the federated provider.
type Client struct {
	baseURL         string
	anonKey         string
	httpClient      *http.Client
	refreshMargin   time.Duration
	minRefreshDelay time.Duration
	now             func() time.Time
	storage         Storage
	logger          *slog.Logger

	mu           sync.Mutex
	loaded       bool
	session      *Session
	listeners    []listener
	nextListener int
	pending      []Event
	signal       chan struct{}
	done         chan struct{}
	refreshTimer *time.Timer
}

// NewClient creates a client bound to one storage namespace.
func NewClient(config Config, storage Storage, logger *slog.Logger) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	refreshMargin := config.RefreshMargin
	if refreshMargin <= 0 {
		refreshMargin = DefaultRefreshMargin
	}

	minRefreshDelay := config.MinRefreshDelay
	if minRefreshDelay <= 0 {
		minRefreshDelay = DefaultMinRefreshDelay
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:         strings.TrimRight(config.BaseURL, "/"),
		anonKey:         config.AnonKey,
		httpClient:      httpClient,
		refreshMargin:   refreshMargin,
		minRefreshDelay: minRefreshDelay,
		now:             now,
		storage:         storage,
		logger:          logger,
	}
}

// # Session Queries

/*
CurrentSession returns the live provider session, refreshing it when near expiry.

Returns:
  - *Session: nil when the client has no session (or the refresh was rejected)
  - error: Storage or network failures
*/
func (client *Client) CurrentSession(ctx context.Context) (*Session, error) {
	client.mu.Lock()
	defer client.mu.Unlock()

	session, err := client.loadLocked(ctx)
	if err != nil || session == nil {
		return nil, err
	}

	if client.now().Add(client.refreshMargin).Before(session.Expiry()) {
		copied := *session
		return &copied, nil
	}

	return client.refreshLocked(ctx)
}

// # Subscriptions

// OnSessionChange registers fn for session change events and returns its unsubscribe function.
//
// While at least one subscriber exists, the client keeps the session fresh on a timer.
func (client *Client) OnSessionChange(fn func(Event)) (unsubscribe func()) {
	client.mu.Lock()
	id := client.nextListener
	client.nextListener++
	client.listeners = append(client.listeners, listener{id: id, fn: fn})

	if client.done == nil {
		client.signal = make(chan struct{}, 1)
		client.done = make(chan struct{})
		go client.dispatch(client.signal, client.done)
	}
	client.scheduleRefreshLocked()
	client.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			client.mu.Lock()
			defer client.mu.Unlock()

			client.listeners = slices.DeleteFunc(client.listeners, func(entry listener) bool {
				return entry.id == id
			})
			if len(client.listeners) == 0 {
				close(client.done)
				client.done = nil
				client.signal = nil
				client.pending = nil
				client.stopRefreshLocked()
			}
		})
	}
}

// dispatch delivers queued events to a snapshot of the listeners, in order.
func (client *Client) dispatch(signal <-chan struct{}, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-signal:
		}

		client.mu.Lock()
		events := client.pending
		client.pending = nil
		listeners := slices.Clone(client.listeners)
		client.mu.Unlock()

		for _, event := range events {
			for _, entry := range listeners {
				entry.fn(event)
			}
		}
	}
}

// emitLocked queues an event for the dispatcher. Without subscribers it is dropped.
func (client *Client) emitLocked(event Event) {
	if client.done == nil {
		return
	}
	client.pending = append(client.pending, event)

	select {
	case client.signal <- struct{}{}:
	default:
	}
}

// # Actions

/*
SignInWithPassword exchanges an email/password pair for a provider session.

Returns:
  - *Session: The new session (also persisted and announced as SignedIn)
  - error: ErrInvalidCredentials, *APIError or network failures
*/
func (client *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := client.post(ctx, "/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	}, &session)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	if err := client.storeLocked(ctx, &session); err != nil {
		return nil, err
	}
	client.emitLocked(Event{Kind: SignedIn, Session: client.copyLocked()})

	return client.copyLocked(), nil
}

/*
SignUp registers a new provider account.

Returns:
  - *Session: The session when the provider auto-confirms, otherwise nil
  - error: *APIError or network failures
*/
func (client *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var raw json.RawMessage
	err := client.post(ctx, "/signup", "", map[string]string{
		"email":    email,
		"password": password,
	}, &raw)
	if err != nil {
		return nil, err
	}

	// Confirmation-required projects answer with a bare user object.
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil || session.AccessToken == "" {
		return nil, nil
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	if err := client.storeLocked(ctx, &session); err != nil {
		return nil, err
	}
	client.emitLocked(Event{Kind: SignedIn, Session: client.copyLocked()})

	return client.copyLocked(), nil
}

// SignOut revokes the session at the provider (best effort) and clears it locally.
func (client *Client) SignOut(ctx context.Context) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	session, err := client.loadLocked(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	if err := client.post(ctx, "/logout", session.AccessToken, nil, nil); err != nil {
		client.logger.WarnContext(ctx, "federated_logout_failed", slog.Any("error", err))
	}

	if err := client.clearLocked(ctx); err != nil {
		return err
	}
	client.emitLocked(Event{Kind: SignedOut})

	return nil
}

// ResetPassword asks the provider to send a recovery email.
func (client *Client) ResetPassword(ctx context.Context, email string) error {
	return client.post(ctx, "/recover", "", map[string]string{"email": email}, nil)
}

// # Refresh

// refreshLocked exchanges the refresh token for a new session.
//
// A 4xx answer means the refresh token is dead: the session is cleared and
// SignedOut is emitted. Other failures leave the stored session untouched.
func (client *Client) refreshLocked(ctx context.Context) (*Session, error) {
	current := client.session

	var session Session
	err := client.post(ctx, "/token?grant_type=refresh_token", "", map[string]string{
		"refresh_token": current.RefreshToken,
	}, &session)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Rejected() {
			client.logger.InfoContext(ctx, "federated_refresh_rejected", slog.Int("status", apiErr.Status))
			if clearErr := client.clearLocked(ctx); clearErr != nil {
				return nil, clearErr
			}
			client.emitLocked(Event{Kind: SignedOut})
			return nil, nil
		}
		return nil, err
	}

	if err := client.storeLocked(ctx, &session); err != nil {
		return nil, err
	}
	client.emitLocked(Event{Kind: TokenRefreshed, Session: client.copyLocked()})

	return client.copyLocked(), nil
}

// scheduleRefreshLocked arms the refresh timer for the current session.
func (client *Client) scheduleRefreshLocked() {
	client.stopRefreshLocked()

	if client.done == nil || client.session == nil {
		return
	}

	delay := client.refreshDelay(client.session)
	client.refreshTimer = time.AfterFunc(delay, client.refreshInBackground)
}

// refreshDelay is how long to wait before refreshing session.
//
// The timer fires refreshMargin before expiry, but never sooner than half the
// remaining lifetime nor sooner than minRefreshDelay. Short-lived or already
// stale tokens therefore refresh at a bounded rate.
func (client *Client) refreshDelay(session *Session) time.Duration {
	remaining := session.Expiry().Sub(client.now())

	delay := remaining - client.refreshMargin
	if half := remaining / 2; delay < half {
		delay = half
	}
	if delay < client.minRefreshDelay {
		delay = client.minRefreshDelay
	}
	return delay
}

func (client *Client) stopRefreshLocked() {
	if client.refreshTimer != nil {
		client.refreshTimer.Stop()
		client.refreshTimer = nil
	}
}

// refreshInBackground is the timer callback.
func (client *Client) refreshInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundRefreshTimeout)
	defer cancel()

	client.mu.Lock()
	defer client.mu.Unlock()

	if client.done == nil || client.session == nil {
		return
	}

	if _, err := client.refreshLocked(ctx); err != nil {
		client.logger.WarnContext(ctx, "federated_background_refresh_failed", slog.Any("error", err))
	}
}

// # Persistence

// loadLocked reads the stored session once; corrupt entries are removed.
func (client *Client) loadLocked(ctx context.Context) (*Session, error) {
	if client.loaded {
		return client.session, nil
	}

	raw, err := client.storage.Get(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("federated_session_load_failed: %w", err)
	}

	client.loaded = true
	if raw == nil {
		return nil, nil
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil || session.validate() != nil {
		client.logger.WarnContext(ctx, "federated_session_corrupt_removed")
		if err := client.storage.Delete(ctx, storageKey); err != nil {
			return nil, fmt.Errorf("federated_session_delete_failed: %w", err)
		}
		return nil, nil
	}

	client.session = &session
	client.scheduleRefreshLocked()
	return client.session, nil
}

// storeLocked validates, persists and adopts a session returned by the provider.
func (client *Client) storeLocked(ctx context.Context, session *Session) error {
	session.normalize(client.now())
	if err := session.validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("federated_session_encode_failed: %w", err)
	}
	if err := client.storage.Set(ctx, storageKey, raw); err != nil {
		return fmt.Errorf("federated_session_store_failed: %w", err)
	}

	client.loaded = true
	client.session = session
	client.scheduleRefreshLocked()
	return nil
}

func (client *Client) clearLocked(ctx context.Context) error {
	if err := client.storage.Delete(ctx, storageKey); err != nil {
		return fmt.Errorf("federated_session_delete_failed: %w", err)
	}
	client.loaded = true
	client.session = nil
	client.stopRefreshLocked()
	return nil
}

func (client *Client) copyLocked() *Session {
	if client.session == nil {
		return nil
	}
	copied := *client.session
	return &copied
}

// # Transport

// errorBody covers the error shapes GoTrue versions return.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Message          string `json:"msg"`
}

// post sends a JSON request and decodes a 2xx JSON answer into out (if non-nil).
func (client *Client) post(ctx context.Context, path, bearer string, payload any, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("federated: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	endpoint, err := url.JoinPath(client.baseURL, strings.SplitN(path, "?", 2)[0])
	if err != nil {
		return fmt.Errorf("federated: build url: %w", err)
	}
	if _, query, found := strings.Cut(path, "?"); found {
		endpoint += "?" + query
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("federated: build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("apikey", client.anonKey)
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("federated: request %s: %w", path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return parseAPIError(response.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("federated: decode response: %w", err)
	}
	return nil
}

func parseAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}

	var parsed errorBody
	if json.Unmarshal(raw, &parsed) != nil {
		return apiErr
	}

	apiErr.Code = parsed.ErrorCode
	if apiErr.Code == "" {
		apiErr.Code = parsed.Error
	}
	for _, message := range []string{parsed.ErrorDescription, parsed.Message, parsed.Error} {
		if message != "" {
			apiErr.Message = message
			break
		}
	}
	return apiErr
}
