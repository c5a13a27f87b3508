package simrun

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/korobprog/supermock-matcher/pkg/logger"
)

// Run executes the complete simulation: enroll, settle, verify.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting matcher simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("usersPerRole", config.NumUsers),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	enrollments, err := generateEnrollments(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("enrollment generation failed: %w", err)
	}

	if err := submitEnrollments(ctx, config, enrollments, stats); err != nil {
		return fmt.Errorf("enrollment submission failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for matching to settle", logger.Duration("delay", config.SettleDelay))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(config.SettleDelay):
	}

	if err := verifyPairings(ctx, config, enrollments, stats); err != nil {
		return fmt.Errorf("pairing verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := drainAndClose(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate float64
	if stats.EnrollmentsSubmitted > 0 {
		successRate = float64(stats.EnrollmentsAccepted) / float64(stats.EnrollmentsSubmitted) * 100
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("enrollmentsGenerated", stats.EnrollmentsGenerated),
		logger.Int("enrollmentsSubmitted", stats.EnrollmentsSubmitted),
		logger.Int("enrollmentsAccepted", stats.EnrollmentsAccepted),
		logger.Int("enrollmentsFailed", stats.EnrollmentsFailed),
		logger.Int("sessionsFound", stats.SessionsFound),
		logger.Int("selfPairs", stats.SelfPairs),
		logger.Duration("duration", stats.Duration),
		logger.Any("successRate", successRate))
}
