// Package httputil provides HTTP helpers for JSON responses, request parsing,
// struct validation and the common middleware stack.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, mapping)
//	httputil.WriteBadRequest(w, "Invalid input")
//
// # Request Parsing
//
//	var req CreateMappingRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	if !httputil.ValidateStructOrError(w, &req) {
//		return
//	}
//
// # Middleware
//
//	router.Use(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//	)
package httputil
