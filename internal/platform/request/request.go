// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/voxboard/internal/platform/apperr"
	"github.com/taibuivan/voxboard/internal/platform/ctxutil"
	"github.com/taibuivan/voxboard/internal/platform/sec"
	"github.com/taibuivan/voxboard/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies; auth payloads are tiny.
const maxBodyBytes = 64 << 10

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (needed to enforce the body size cap)
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)

	decoder := json.NewDecoder(request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
ClientID returns the browser client identifier set by the ClientID middleware.
*/
func ClientID(request *http.Request) string {
	return ctxutil.GetClientID(request.Context())
}

/*
RequiredIdentity ensures the session gate approved the request and returns the identity.

Returns:
  - *sec.Identity: The gate-approved identity
  - error: apperr.Unauthorized if the request is anonymous
*/
func RequiredIdentity(request *http.Request) (*sec.Identity, error) {

	// Get the identity injected by the gate middleware
	identity := ctxutil.GetIdentity(request.Context())

	// If no identity is present, the request never passed the gate
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return identity, nil
}
