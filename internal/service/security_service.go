package service

import (
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"postpilot/internal/logging"
	"postpilot/internal/transfer"
)

// SecurityService authenticates cron trigger invocations against a shared
// secret and tracks repeated violations per source IP. Once an IP exceeds
// the configured count inside the sliding window, further violations are
// reported as rate_limited regardless of their underlying cause.
type SecurityService interface {
	// ValidateCronAuth checks an Authorization header. hasHeader
	// distinguishes an absent header from one present but empty, which
	// Go's header accessors both report as "".
	ValidateCronAuth(header string, hasHeader bool, meta transfer.RequestMeta) transfer.AuthResult
}

type SecurityConfig struct {
	CronSecret         string
	ViolationThreshold int
	ViolationWindow    time.Duration
}

type securityService struct {
	cfg SecurityConfig
	log *logging.Logger

	mu         sync.Mutex
	violations map[string][]time.Time
	lastSweep  time.Time
	now        func() time.Time
}

func NewSecurityService(cfg SecurityConfig, log *logging.Logger) SecurityService {
	if cfg.ViolationThreshold <= 0 {
		cfg.ViolationThreshold = 10
	}
	if cfg.ViolationWindow <= 0 {
		cfg.ViolationWindow = 15 * time.Minute
	}
	return &securityService{
		cfg:        cfg,
		log:        log,
		violations: make(map[string][]time.Time),
		now:        time.Now,
	}
}

func (s *securityService) ValidateCronAuth(header string, hasHeader bool, meta transfer.RequestMeta) transfer.AuthResult {
	violationType, errMsg := s.classify(header, hasHeader)

	if violationType == "" {
		s.log.Info("cron trigger authenticated",
			logging.String("ip", meta.IP),
			logging.String("path", meta.Path))
		return transfer.AuthResult{IsValid: true}
	}

	reported := violationType
	if s.recordViolation(meta.IP) {
		reported = transfer.ViolationRateLimited
	}

	s.log.Warn("cron trigger security violation",
		logging.String("violation_type", reported),
		logging.String("underlying_violation", violationType),
		logging.String("ip", meta.IP),
		logging.String("user_agent", meta.UserAgent),
		logging.String("method", meta.Method),
		logging.String("path", meta.Path),
		logging.Time("timestamp", s.now().UTC()))

	return transfer.AuthResult{
		IsValid:           false,
		SecurityViolation: true,
		ViolationType:     reported,
		ErrorMessage:      errMsg,
	}
}

// classify returns the first failing check, or "" for a valid request.
func (s *securityService) classify(header string, hasHeader bool) (violationType, errMsg string) {
	if strings.TrimSpace(s.cfg.CronSecret) == "" {
		return transfer.ViolationMissingSecret, "cron secret is not configured"
	}
	if !hasHeader {
		return transfer.ViolationMissingAuthHeader, "authorization header is missing"
	}
	if header == "" {
		return transfer.ViolationEmptyAuthHeader, "authorization header is empty"
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return transfer.ViolationWrongAuthType, "authorization must use the Bearer scheme"
	}
	token := header[len("Bearer "):]
	if strings.TrimSpace(token) == "" {
		return transfer.ViolationMalformedBearerToken, "bearer token is empty"
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.CronSecret)) != 1 {
		return transfer.ViolationInvalidSecret, "bearer token does not match the configured secret"
	}
	return "", ""
}

// recordViolation appends a violation for ip and reports whether the IP is
// now over the threshold within the window. Expired entries are swept
// opportunistically.
func (s *securityService) recordViolation(ip string) bool {
	now := s.now()
	cutoff := now.Add(-s.cfg.ViolationWindow)

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > s.cfg.ViolationWindow {
		s.sweepLocked(cutoff)
		s.lastSweep = now
	}

	recent := s.violations[ip][:0]
	for _, t := range s.violations[ip] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	s.violations[ip] = recent

	return len(recent) > s.cfg.ViolationThreshold
}

func (s *securityService) sweepLocked(cutoff time.Time) {
	for ip, times := range s.violations {
		recent := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				recent = append(recent, t)
			}
		}
		if len(recent) == 0 {
			delete(s.violations, ip)
		} else {
			s.violations[ip] = recent
		}
	}
}
