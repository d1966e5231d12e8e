package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

type AuthConfig struct {
	// APIKey is the shared secret compared against the APIKeyHeader value.
	APIKey string
	// APIKeyHeader is the header carrying the key, "api-key" by default.
	APIKeyHeader string
	// JWTSecret, when set, additionally accepts Authorization: Bearer tokens
	// signed with HS256.
	JWTSecret string
	Logger    zerolog.Logger
}

func (c AuthConfig) headerName() string {
	if c.APIKeyHeader == "" {
		return "api-key"
	}
	return c.APIKeyHeader
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func validateJWT(token, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid token")
	}
	return nil
}

// newAuthMiddleware guards every route under basePath except the health
// probe and the documentation pages. Callers authenticate with the api-key
// header, or with a bearer JWT when a secret is configured.
func newAuthMiddleware(basePath string, cfg AuthConfig) func(http.Handler) http.Handler {
	healthPath := path.Join(basePath, "health")
	openapiPath := path.Join(basePath, "openapi.json")
	header := cfg.headerName()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			switch req.URL.Path {
			case healthPath, openapiPath, "/docs":
				next.ServeHTTP(w, req)
				return
			}

			if key := strings.TrimSpace(req.Header.Get(header)); key != "" {
				if cfg.APIKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) == 1 {
					next.ServeHTTP(w, req)
					return
				}
				cfg.Logger.Warn().Str("path", req.URL.Path).Msg("rejected request with wrong api key")
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "Invalid or missing API Key", nil))
				return
			}

			if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
				token, ok := bearerToken(authz)
				if ok {
					if err := validateJWT(token, cfg.JWTSecret); err == nil {
						next.ServeHTTP(w, req)
						return
					}
				}
				cfg.Logger.Warn().Str("path", req.URL.Path).Msg("rejected request with invalid bearer token")
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "Invalid or missing API Key", nil))
				return
			}

			respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "Invalid or missing API Key", nil))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
