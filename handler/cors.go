package handler

import "net/http"

// CORSAllowHeaders lists the request headers browser clients may send.
const CORSAllowHeaders = "authorization, x-client-info, apikey, content-type"

// CORS allows any origin and answers preflight requests with "ok".
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", CORSAllowHeaders)

		if r.Method == http.MethodOptions {
			_ = Text(http.StatusOK, "ok").Render(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
