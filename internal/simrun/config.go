// Package simrun drives a running matcher instance with synthetic
// enrollments and verifies the resulting pairings.
package simrun

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumUsers     int           // Users per role to enroll
	SlotSpread   int           // Distinct hourly slots to spread enrollments over
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	SettleDelay  time.Duration // Wait after submission before verification
	SampleChecks int           // Interviewers to probe for pairings
	Verbose      bool          // Enable verbose logging
}

// Enrollment is one preference submission for a synthetic user.
type Enrollment struct {
	UserID     string   `json:"user_id"`
	Role       string   `json:"role"`
	Profession string   `json:"profession"`
	Language   string   `json:"language"`
	Slots      []string `json:"slots"`

	Tools []string `json:"-"`
}

// Stats holds simulation statistics.
type Stats struct {
	EnrollmentsGenerated int
	EnrollmentsSubmitted int
	EnrollmentsAccepted  int
	EnrollmentsFailed    int
	SessionsFound        int
	SelfPairs            int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
