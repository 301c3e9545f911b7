package middleware

import (
	"net/http"
	"time"

	"github.com/Rrens/greenbite/internal/session"
	"github.com/google/uuid"
)

// DeviceCookie names the cookie that identifies a browser
const DeviceCookie = "gb_device"

const deviceCookieMaxAge = 365 * 24 * time.Hour

// Device makes sure every request carries a device id, issuing a new cookie
// when the browser has none or sent a malformed one.
func Device(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var deviceID string
			if c, err := r.Cookie(DeviceCookie); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					deviceID = id.String()
				}
			}

			if deviceID == "" {
				deviceID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     DeviceCookie,
					Value:    deviceID,
					Path:     "/",
					MaxAge:   int(deviceCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(session.WithDevice(r.Context(), deviceID)))
		})
	}
}
