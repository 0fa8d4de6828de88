// Package proctor ingests pre-classified integrity events for exam sessions
// and scores them. It does no detection of its own: events arrive already
// labeled from the proctoring frontend.
package proctor

import (
	"fmt"
	"sync"
	"time"
)

// Known event types.
const (
	EventTabSwitch        = "tab_switch"
	EventFaceNotDetected  = "face_not_detected"
	EventMultipleFaces    = "multiple_faces"
	EventSuspiciousObject = "suspicious_object"
)

// RiskLevel summarizes a session's accumulated integrity risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Over-threshold occurrences count double into the risk score.
var riskThresholds = map[string]int{
	EventTabSwitch:        3,
	EventFaceNotDetected:  5,
	EventMultipleFaces:    1,
	EventSuspiciousObject: 2,
}

// Integrity score deductions per occurrence.
var integrityDeductions = map[string]int{
	EventTabSwitch:        5,
	EventFaceNotDetected:  10,
	EventMultipleFaces:    20,
	EventSuspiciousObject: 15,
}

const defaultThreshold = 5

// Event is one pre-classified proctoring observation.
type Event struct {
	Type       string    `json:"event_type"`
	Confidence float64   `json:"confidence,omitempty"`
	Details    string    `json:"details,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type sessionState struct {
	startedAt time.Time
	events    []Event
	flags     map[string]int
	risk      RiskLevel
}

// Monitor tracks proctoring state per exam session.
type Monitor struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
}

// NewMonitor creates an empty Monitor.
func NewMonitor() *Monitor {
	return &Monitor{sessions: make(map[string]*sessionState)}
}

// StartSession initializes proctoring state for a session.
func (m *Monitor) StartSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; ok {
		return
	}
	m.sessions[sessionID] = &sessionState{
		startedAt: time.Now(),
		flags:     make(map[string]int),
		risk:      RiskLow,
	}
}

// LogEvent records an event and returns the session's updated risk level.
// Events for unknown sessions start proctoring state implicitly so that
// flags arriving before the explicit start are not lost.
func (m *Monitor) LogEvent(sessionID string, ev Event) (RiskLevel, error) {
	if ev.Type == "" {
		return "", fmt.Errorf("event type is required")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		st = &sessionState{
			startedAt: time.Now(),
			flags:     make(map[string]int),
			risk:      RiskLow,
		}
		m.sessions[sessionID] = st
	}

	st.events = append(st.events, ev)
	st.flags[ev.Type]++
	st.risk = assessRisk(st.flags)
	return st.risk, nil
}

func assessRisk(flags map[string]int) RiskLevel {
	score := 0.0
	for eventType, count := range flags {
		threshold, ok := riskThresholds[eventType]
		if !ok {
			threshold = defaultThreshold
		}
		if count > threshold {
			score += float64(count-threshold) * 2
		} else {
			score += float64(count) * 0.5
		}
	}
	switch {
	case score < 5:
		return RiskLow
	case score < 10:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func integrityScore(flags map[string]int) int {
	score := 100
	for eventType, count := range flags {
		deduction, ok := integrityDeductions[eventType]
		if !ok {
			deduction = 5
		}
		score -= deduction * count
	}
	if score < 0 {
		return 0
	}
	return score
}

// Report is the proctoring summary for one session.
type Report struct {
	SessionID       string         `json:"session_id"`
	DurationSec     int            `json:"duration_sec"`
	RiskLevel       RiskLevel      `json:"risk_level"`
	IntegrityScore  int            `json:"integrity_score"`
	TotalEvents     int            `json:"total_events"`
	Flags           map[string]int `json:"flags"`
	Recommendations []string       `json:"recommendations"`
	RecentEvents    []Event        `json:"recent_events"`
}

// SessionReport builds the integrity report for a session. The recent-events
// list is capped at the last ten.
func (m *Monitor) SessionReport(sessionID string) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("no proctoring state for session %s", sessionID)
	}

	flags := make(map[string]int, len(st.flags))
	for k, v := range st.flags {
		flags[k] = v
	}

	recent := st.events
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	return &Report{
		SessionID:       sessionID,
		DurationSec:     int(time.Since(st.startedAt).Seconds()),
		RiskLevel:       st.risk,
		IntegrityScore:  integrityScore(st.flags),
		TotalEvents:     len(st.events),
		Flags:           flags,
		Recommendations: recommendations(st.flags, st.risk),
		RecentEvents:    append([]Event(nil), recent...),
	}, nil
}

func recommendations(flags map[string]int, risk RiskLevel) []string {
	var recs []string
	if risk == RiskHigh {
		recs = append(recs, "High risk detected - manual review recommended")
	}
	if flags[EventTabSwitch] > riskThresholds[EventTabSwitch] {
		recs = append(recs, fmt.Sprintf("Excessive tab switching detected (%d times)", flags[EventTabSwitch]))
	}
	if flags[EventFaceNotDetected] > riskThresholds[EventFaceNotDetected] {
		recs = append(recs, "Student was frequently not visible on camera")
	}
	if flags[EventMultipleFaces] > 0 {
		recs = append(recs, "Multiple faces detected - possible unauthorized assistance")
	}
	if flags[EventSuspiciousObject] > 0 {
		recs = append(recs, "Suspicious objects detected in frame")
	}
	if len(recs) == 0 {
		recs = append(recs, "No significant integrity concerns detected")
	}
	return recs
}
