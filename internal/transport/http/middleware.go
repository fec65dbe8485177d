// Copyright 2026 The Vendasol Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/vendasol/vendasol/internal/audit"
	"github.com/vendasol/vendasol/internal/observability/logger"
	"github.com/vendasol/vendasol/internal/session"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware resolves the tenant context from the request credential
// and attaches it for the handler. Fails closed: no verified credential or
// no derivable tenant means the request never reaches a repository.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := h.getCredential(r)

		tc, err := h.resolver.Resolve(r.Context(), credential)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrTenantUnresolvable):
				h.auditLogger.Log(r.Context(), audit.Event{
					Type:      audit.TypeTenantUnresolved,
					IPAddress: getIPAddress(r),
					UserAgent: r.UserAgent(),
				})
				respondError(w, http.StatusNotFound, "tenant not found")
			default:
				h.auditLogger.Log(r.Context(), audit.Event{
					Type:      audit.TypeAccessDenied,
					IPAddress: getIPAddress(r),
					UserAgent: r.UserAgent(),
				})
				respondError(w, http.StatusUnauthorized, "not authenticated")
			}
			return
		}

		// A client-supplied tenant id on an authenticated request is a
		// spoofing attempt; the session is the only tenant source.
		if r.Header.Get("X-Tenant-ID") != "" {
			slog.WarnContext(r.Context(), "tenant header spoofing attempt detected",
				logger.TenantID(tc.TenantID),
				logger.UserID(tc.UserID),
			)
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeTenantHeaderSeen,
				TenantID:  tc.TenantID,
				ActorID:   tc.UserID,
				IPAddress: getIPAddress(r),
			})
			respondError(w, http.StatusBadRequest, "X-Tenant-ID header is not allowed; tenant is derived from the session")
			return
		}

		next.ServeHTTP(w, r.WithContext(withTenantContext(r.Context(), tc)))
	})
}

// getCredential extracts the opaque session credential from the cookie or,
// failing that, from a bearer Authorization header.
func (h *Handler) getCredential(r *http.Request) string {
	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
