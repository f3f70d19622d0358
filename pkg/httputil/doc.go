// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Envelope
//
// Every JSON body is an Envelope:
//
//	{"success": true, "message": "Login successful", "data": {...}}
//	{"success": false, "message": "Email already exists", "error": "Conflict"}
//
// Helpers:
//
//	httputil.WriteSuccess(w, "Chapter updated", chapter)
//	httputil.WriteCreated(w, "Chapter created", chapter)
//	httputil.WriteConflict(w, "Email already exists")
//	httputil.WriteInternalError(w) // message is always opaque
//
// # Request Parsing
//
//	var req registerRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	id, ok := httputil.ParsePathUUIDOrError(w, r, "id")
//	page, ok := httputil.ParsePageOrError(w, r, 20, 100)
//
// # Validation
//
//	httputil.ValidateAll(w,
//		httputil.RequireNonEmpty(req.Title, "title"),
//		httputil.RequireRange(int64(req.Rating), 1, 5, "rating"),
//	)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
