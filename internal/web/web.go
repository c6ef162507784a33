// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package web serves the server-rendered dashboard pages.

Pages:

  - GET  /login  : Sign-in form (redirects home when already signed in).
  - POST /login  : Credentials login through the client's gate.
  - POST /logout : Sign out, back to the form.
  - GET  /       : Dashboard shell, behind auth.RequireSession.

The package is also the HTML [auth.Renderer]: a loading page while the
client's gate is initializing, a redirect to /login when nobody is signed in.
*/
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/voxboard/internal/auth"
	"github.com/taibuivan/voxboard/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/voxboard/internal/platform/request"
	"github.com/taibuivan/voxboard/internal/platform/respond"
	"github.com/taibuivan/voxboard/internal/platform/sec"
	"github.com/taibuivan/voxboard/internal/records"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Messages shown on the sign-in form.
const (
	MessageInvalidCredentials = "Invalid username or password."
	MessageUnavailable        = "Authentication failed. Please try again."
	MessageMissingFields      = "Enter your username and password."
)

const (
	pageLogin     = "login"
	pageLoading   = "loading"
	pageDashboard = "dashboard"
)

// pageData is the single view model shared by all templates.
type pageData struct {
	Title     string
	Error     string
	Username  string
	Identity  *sec.Identity
	Summaries []records.Summary
}

// # Definitions & Constructors

// Handler renders the dashboard pages.
type Handler struct {
	gates   *auth.Gates
	records *records.Service
	pages   map[string]*template.Template
	logger  *slog.Logger
}

// NewHandler parses the embedded templates.
func NewHandler(gates *auth.Gates, recordService *records.Service, logger *slog.Logger) (*Handler, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{pageLogin, pageLoading, pageDashboard} {
		page, err := template.ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("web_template_parse_failed: %s: %w", name, err)
		}
		pages[name] = page
	}

	return &Handler{gates: gates, records: recordService, pages: pages, logger: logger}, nil
}

/*
Routes returns the page router.

throttle wraps the credential form submission.
*/
func (handler *Handler) Routes(throttle func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Get("/login", handler.loginForm)
	router.With(throttle).Post("/login", handler.login)
	router.Post("/logout", handler.logout)

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(handler.gates, handler))
		r.Get("/", handler.dashboard)
	})

	return router
}

// # Rendering

// render writes a page through a buffer so template errors never leave half a page.
func (handler *Handler) render(writer http.ResponseWriter, request *http.Request, status int, name string, data pageData) {
	var buffer bytes.Buffer
	if err := handler.pages[name].ExecuteTemplate(&buffer, "layout", data); err != nil {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "web_render_failed",
			slog.String("page", name),
			slog.Any("error", err),
		)
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.Header().Set("Cache-Control", "no-store")
	writer.WriteHeader(status)
	_, _ = buffer.WriteTo(writer)
}

// Loading renders the auto-refreshing page shown while the gate initializes.
func (handler *Handler) Loading(writer http.ResponseWriter, request *http.Request) {
	handler.render(writer, request, http.StatusOK, pageLoading, pageData{Title: "Loading"})
}

// Login sends the browser to the sign-in form.
func (handler *Handler) Login(writer http.ResponseWriter, request *http.Request) {
	http.Redirect(writer, request, "/login", http.StatusSeeOther)
}

// # Pages

func (handler *Handler) gate(request *http.Request) *auth.Gate {
	clientID := requestutil.ClientID(request)
	if clientID == "" {
		return nil
	}
	return handler.gates.For(request.Context(), clientID)
}

func (handler *Handler) loginForm(writer http.ResponseWriter, request *http.Request) {
	if gate := handler.gate(request); gate != nil {
		if gate.Current(request.Context()).Identity != nil {
			http.Redirect(writer, request, "/", http.StatusSeeOther)
			return
		}
	}

	handler.render(writer, request, http.StatusOK, pageLogin, pageData{Title: "Sign in"})
}

/*
login handles the sign-in form.

Description: Every failure re-renders the form with a message; the gate
state is untouched. Success redirects to the dashboard.
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		handler.render(writer, request, http.StatusBadRequest, pageLogin, pageData{Title: "Sign in", Error: MessageMissingFields})
		return
	}

	username := request.PostFormValue("username")
	password := request.PostFormValue("password")
	data := pageData{Title: "Sign in", Username: username}

	gate := handler.gate(request)
	if gate == nil {
		data.Error = MessageUnavailable
		handler.render(writer, request, http.StatusBadRequest, pageLogin, data)
		return
	}

	if _, err := gate.Login(request.Context(), username, password); err != nil {
		appErr := respond.Classify(request, err)
		data.Error = MessageUnavailable
		if errors.Is(err, auth.ErrInvalidCredentials) {
			data.Error = MessageInvalidCredentials
		}
		if username == "" || password == "" {
			data.Error = MessageMissingFields
		}
		handler.render(writer, request, appErr.HTTPStatus, pageLogin, data)
		return
	}

	http.Redirect(writer, request, "/", http.StatusSeeOther)
}

func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if gate := handler.gate(request); gate != nil {
		if err := gate.SignOut(request.Context()); err != nil {
			ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "web_sign_out_incomplete", slog.Any("error", err))
		}
	}

	http.Redirect(writer, request, "/login", http.StatusSeeOther)
}

func (handler *Handler) dashboard(writer http.ResponseWriter, request *http.Request) {
	identity := ctxutil.GetIdentity(request.Context())

	summaries, err := handler.records.Summaries(request.Context())
	if err != nil {
		appErr := respond.Classify(request, err)
		handler.render(writer, request, appErr.HTTPStatus, pageDashboard, pageData{
			Title:    "Dashboard",
			Error:    appErr.Message,
			Identity: identity,
		})
		return
	}

	handler.render(writer, request, http.StatusOK, pageDashboard, pageData{
		Title:     "Dashboard",
		Identity:  identity,
		Summaries: summaries,
	})
}
