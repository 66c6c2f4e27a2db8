package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"slices"
	"strings"

	"github.com/akolanti/LayoutAPI/internal/adapter/utils"
	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/handlers"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

func applyCORS(re requestResponseStruct) requestResponseStruct {
	origin := re.req.Header.Get("Origin")
	if origin == "" {
		return re
	}
	header := re.writer.Header()
	switch {
	case slices.Contains(settings.allowedOrigins, "*"):
		header.Set("Access-Control-Allow-Origin", "*")
	case slices.Contains(settings.allowedOrigins, origin):
		header.Set("Access-Control-Allow-Origin", origin)
		header.Add("Vary", "Origin")
	default:
		return re
	}
	header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key, X-Trace-Id")
	header.Set("Access-Control-Expose-Headers", "X-Trace-Id")
	return re
}

func injectTrace(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("Injecting trace middleware")
	req := re.req
	if req == nil {
		re.badRequest.httpCode = http.StatusBadRequest
		re.badRequest.errorMessage = "request is empty"
		re.badRequest.isBadRequest = true
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	req.Header.Set("X-Trace-Id", trace)
	re.writer.Header().Set("X-Trace-Id", trace)
	re.req = req.WithContext(ctx)

	re.logger.Debug("trace middleware injected")
	return re
}

func authenticate(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("Authenticating request")

	if !IsValidAPIKey(re.req, settings.apiKey, re.logger) {
		re.badRequest.isBadRequest = true
		re.badRequest.errorMessage = "Unauthorized"
		re.badRequest.httpCode = http.StatusUnauthorized
		return re
	}
	re.logger.Debug("Authorized")
	return re
}

// IsValidAPIKey accepts X-API-Key or a bearer token matching key. An empty key disables auth.
func IsValidAPIKey(req *http.Request, key string, log *logger_i.Logger) bool {
	if key == "" {
		return true
	}
	presented := req.Header.Get("X-API-Key")
	if presented == "" {
		authHeader := req.Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("No credentials presented")
			return false
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Warn("No Bearer header")
			return false
		}
		presented = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
		log.Warn("Invalid credentials")
		return false
	}
	return true
}

func rateLimiter(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("Rate limiter middleware")
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !settings.limiter.GetLimiter(ip).Allow() {
		re.logger.Warn("Too many requests", "ip", ip)
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorMessage: "Rate limit exceeded",
		}
		return re
	}
	re.logger.Debug("Rate limiter middleware authorized")
	return re
}

func handleBadRequest(re requestResponseStruct) {
	re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", re.req.RemoteAddr)
	handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, re.badRequest.id, re.badRequest.errorMessage)
}
