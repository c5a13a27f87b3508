package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/korobprog/supermock-matcher/internal/simrun"
	"github.com/korobprog/supermock-matcher/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumUsers     = 500
	defaultSlotSpread   = 6
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 10 * time.Second
	defaultSettleDelay  = 5 * time.Second
	defaultSampleChecks = 100
	defaultRunTimeout   = 5 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9090", "Base URL of the service")
		numUsers     = flag.Int("users", defaultNumUsers, "Users per role to enroll")
		slotSpread   = flag.Int("slots", defaultSlotSpread, "Distinct hourly slots to spread enrollments over")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settleDelay  = flag.Duration("settle", defaultSettleDelay, "Wait after submission before verification")
		sampleChecks = flag.Int("sample", defaultSampleChecks, "Interviewers to probe for pairings")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simrun.Config{
		BaseURL:      *baseURL,
		NumUsers:     *numUsers,
		SlotSpread:   *slotSpread,
		Workers:      *workers,
		Timeout:      *timeout,
		SettleDelay:  *settleDelay,
		SampleChecks: *sampleChecks,
		Verbose:      *verbose,
	}

	if err := simrun.Run(ctx, config); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
