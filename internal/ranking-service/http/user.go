package httpapi

import (
	"context"
	"net/http"
	"strconv"
)

// UserHeader carrega o usuário já autenticado por uma camada anterior (gateway)
const UserHeader = "X-User-ID"

type contextKey string

const userContextKey contextKey = "user_id"

// requireUser recusa requisições sem X-User-ID numérico e positivo
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(UserHeader), 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or invalid " + UserHeader})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, id)))
	})
}

func userFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userContextKey).(int64)
	return id
}
