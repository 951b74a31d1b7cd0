package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields := log.Fields{
				"method": r.Method,
				"route":  routeName(r),
				"ua":     r.Header.Get("User-Agent"),
			}
			if userID, ok := mux.Vars(r)["userID"]; ok {
				fields["user"] = userID
			}
			log.WithFields(fields).Trace(" ====> request")
			next.ServeHTTP(w, r)
		})
	}
}
