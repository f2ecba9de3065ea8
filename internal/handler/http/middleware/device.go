package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/handler/http/response"
	"golang.org/x/crypto/bcrypt"
)

// DeviceKeyHeader carries the shared reader secret on scan requests.
const DeviceKeyHeader = "X-Device-Key"

// DeviceKey admits requests whose X-Device-Key matches the bcrypt hash.
// Rejections still carry a reader token so the display shows something.
func DeviceKey(hash string) func(http.Handler) http.Handler {
	hashed := []byte(hash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(DeviceKeyHeader)
			if key == "" || bcrypt.CompareHashAndPassword(hashed, []byte(key)) != nil {
				response.DeviceUnauthorized(w, attendance.TokenSystemError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
