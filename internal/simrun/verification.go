package simrun

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/korobprog/supermock-matcher/pkg/logger"
)

type sessionProbe struct {
	ID            string `json:"id"`
	InterviewerID string `json:"interviewer_id"`
	CandidateID   string `json:"candidate_id"`
	Status        string `json:"status"`
	Slot          string `json:"slot"`
}

// verifyPairings probes a sample of enrolled interviewers for their latest
// session and checks that nobody was paired with themselves. Unmatched
// interviewers are expected when role counts per bucket are uneven, so a
// 404 is not a failure.
func verifyPairings(ctx context.Context, config *Config, enrollments []Enrollment, stats *Stats) error {
	client := newHTTPClient(config.Timeout)

	probed := 0
	for _, e := range enrollments {
		if e.Role != "interviewer" {
			continue
		}
		if probed >= config.SampleChecks {
			break
		}
		probed++

		resp, err := client.Get(ctx, config.BaseURL+"/users/"+e.UserID+"/last-interview")
		if err != nil {
			return fmt.Errorf("probe for user %s failed: %w", e.UserID, err)
		}
		body, err := drainAndClose(resp)
		if err != nil {
			return fmt.Errorf("probe read for user %s failed: %w", e.UserID, err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var probe sessionProbe
			if err := json.Unmarshal(body, &probe); err != nil {
				return fmt.Errorf("probe decode for user %s failed: %w", e.UserID, err)
			}
			stats.SessionsFound++
			if probe.InterviewerID == probe.CandidateID {
				stats.SelfPairs++
				logger.Get().Error(ctx, "self-pair detected",
					logger.String("sessionID", probe.ID),
					logger.String("userID", probe.InterviewerID))
			}
			if config.Verbose {
				logger.Get().Info(ctx, "pairing found",
					logger.String("sessionID", probe.ID),
					logger.String("interviewer", probe.InterviewerID),
					logger.String("candidate", probe.CandidateID),
					logger.String("slot", probe.Slot))
			}
		case http.StatusNotFound:
			// Still waiting, nothing to check.
		default:
			return fmt.Errorf("probe for user %s returned status %d", e.UserID, resp.StatusCode)
		}
	}

	if stats.SelfPairs > 0 {
		return fmt.Errorf("detected %d self-paired sessions", stats.SelfPairs)
	}

	logServiceStats(ctx, config, client)

	logger.Get().Info(ctx, "pairing verification passed",
		logger.Int("probed", probed),
		logger.Int("sessionsFound", stats.SessionsFound))
	return nil
}

// logServiceStats fetches the service stats endpoint for the final report.
func logServiceStats(ctx context.Context, config *Config, client *HTTPClient) {
	resp, err := client.Get(ctx, config.BaseURL+"/stats")
	if err != nil {
		logger.Get().Warn(ctx, "failed to fetch service stats", logger.Error(err))
		return
	}
	body, err := drainAndClose(resp)
	if err != nil || resp.StatusCode != http.StatusOK {
		logger.Get().Warn(ctx, "failed to read service stats")
		return
	}

	var snapshot map[string]interface{}
	if err := json.Unmarshal(body, &snapshot); err != nil {
		logger.Get().Warn(ctx, "failed to decode service stats", logger.Error(err))
		return
	}
	logger.Get().Info(ctx, "service stats", logger.Any("stats", snapshot))
}
