package model

import "fmt"

// LimitStatus is the severity assigned to a computed output value.
type LimitStatus string

const (
	StatusNormal    LimitStatus = "NORMAL"
	StatusAttention LimitStatus = "ATTENTION"
	StatusAlert     LimitStatus = "ALERT"
	StatusEmergency LimitStatus = "EMERGENCY"
)

// AllStatuses lists the statuses from least to most severe.
var AllStatuses = []LimitStatus{StatusNormal, StatusAttention, StatusAlert, StatusEmergency}

// sourceNames maps the names used by the monitoring platform database.
var sourceNames = map[LimitStatus]string{
	StatusNormal:    "NORMAL",
	StatusAttention: "ATENCAO",
	StatusAlert:     "ALERTA",
	StatusEmergency: "EMERGENCIA",
}

// Severity returns 0 for NORMAL up to 3 for EMERGENCY, and -1 for an unknown
// status.
func (s LimitStatus) Severity() int {
	for i, st := range AllStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the four statuses.
func (s LimitStatus) Valid() bool {
	return s.Severity() >= 0
}

// SourceName returns the platform database name of the status.
func (s LimitStatus) SourceName() string {
	return sourceNames[s]
}

// StatusForSeverity is the inverse of Severity.
func StatusForSeverity(severity int) LimitStatus {
	if severity < 0 || severity >= len(AllStatuses) {
		return ""
	}
	return AllStatuses[severity]
}

// ParseLimitStatus accepts either the English or the platform database name.
func ParseLimitStatus(s string) (LimitStatus, error) {
	for _, st := range AllStatuses {
		if s == string(st) || s == sourceNames[st] {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown limit status %q", s)
}

// Max returns the more severe of two statuses.
func Max(a, b LimitStatus) LimitStatus {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}
