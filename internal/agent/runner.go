package agent

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"ai-trader/internal/dates"
	"ai-trader/internal/interfaces"
	"ai-trader/internal/ledger"
	"ai-trader/internal/logger"
	"ai-trader/internal/runtimeenv"
	"ai-trader/internal/session"
	"ai-trader/internal/sessionlog"
	"ai-trader/internal/store"
	"ai-trader/internal/trace"
	"ai-trader/internal/types"
)

// Runner drives one signature through its calendar of sessions. Sessions are
// strictly sequential: each opening snapshot depends on the prior session's
// committed position.
type Runner struct {
	cfg       *store.Config
	signature string
	loop      *session.Loop
	driver    *session.Driver
	env       interfaces.EnvStore
	recorder  interfaces.ActivityRecorder
	ledger    interfaces.Ledger
}

// NewCryptoRunner is the factory for the crypto variant.
func NewCryptoRunner(deps Deps, mc store.ModelConfig) *Runner {
	symbol := deps.Cfg.Agent.DefaultSymbols[0]
	loop := &session.Loop{
		Signature: mc.Signature,
		Model:     deps.NewModel(mc.Basemodel),
		Tools:     deps.Tools,
		Ledger:    deps.Ledger,
		Env:       deps.Env,
		Log:       sessionlog.NewWriter(deps.Cfg.DataDir, mc.Signature),
		MaxSteps:  deps.Cfg.Agent.MaxSteps,
		Opening:   cryptoOpening(deps.History, symbol),
	}
	driver := session.NewDriver(mc.Signature, session.RetryConfig{
		MaxRetries: deps.Cfg.Agent.MaxRetries,
		BaseDelay:  time.Duration(float64(time.Second) * deps.Cfg.Agent.BaseDelaySeconds),
	})
	return &Runner{
		cfg:       deps.Cfg,
		signature: mc.Signature,
		loop:      loop,
		driver:    driver,
		env:       deps.Env,
		recorder:  deps.Recorder,
		ledger:    deps.Ledger,
	}
}

// Run registers the signature if needed, then executes every pending session
// in date order. Cancellation is honored between sessions only; an in-flight
// session runs to its own terminal state or retry exhaustion.
func (r *Runner) Run(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "agent.Run")
	defer span.End()

	runID := ulid.Make().String()
	logger.Info(ctx, "Starting signature run",
		"signature", r.signature,
		"run_id", runID,
		"init_date", r.cfg.DateRange.InitDate,
		"end_date", r.cfg.DateRange.EndDate,
	)

	// The seed snapshot is dated the day before the window so the first
	// session date is not consumed by registration.
	seedDate, err := dayBefore(r.cfg.DateRange.InitDate)
	if err != nil {
		return err
	}
	if err := r.ledger.Register(r.signature, r.cfg.Agent.DefaultSymbols, r.cfg.Agent.InitialCash, seedDate); err != nil {
		logger.ErrorWithErr(ctx, "Registration failed", err, "signature", r.signature)
		return err
	}

	it, err := r.pendingDates()
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			logger.Warn(ctx, "Run cancelled between sessions", "signature", r.signature)
			return err
		}
		date, ok := it.Next()
		if !ok {
			break
		}

		report, err := r.driver.Run(ctx, date, func(ctx context.Context) (*types.SessionReport, error) {
			return r.loop.Run(ctx, date)
		})
		if err != nil {
			if fatal := r.classify(ctx, date, err); fatal {
				return err
			}
			continue
		}

		logger.Info(ctx, "Session terminated",
			"signature", r.signature,
			"date", date,
			"outcome", string(report.Outcome),
			"steps", report.Steps,
			"retries", report.Retries,
			"trades", len(report.Trades),
		)
		r.afterSession(ctx, date)
	}

	logger.Info(ctx, "Signature run complete", "signature", r.signature, "run_id", runID)
	return nil
}

// pendingDates builds the session iterator, resuming after the last
// committed snapshot so re-runs pick up where they stopped.
func (r *Runner) pendingDates() (*dates.Iterator, error) {
	var ref dates.TimeIndex
	g := dates.Granularity(r.cfg.Granularity)
	if g == dates.GranularityHour {
		ref = dates.FileTimeIndex{Path: r.cfg.TimeIndexFile}
	}
	it, err := dates.New(r.cfg.DateRange.InitDate, r.cfg.DateRange.EndDate, g, ref)
	if err != nil {
		return nil, err
	}
	latest, err := r.ledger.Latest(r.signature)
	if err != nil {
		return nil, err
	}
	it.ResumeAfter(latest.Date)
	return it, nil
}

// classify applies the failure policy: advance on an ordinary session
// failure, abort the whole signature run on fatal-class causes.
func (r *Runner) classify(ctx context.Context, date string, err error) (fatal bool) {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return true
	case types.IsCredential(err):
		logger.ErrorWithErr(ctx, "Credential failure, aborting signature run", err, "signature", r.signature, "date", date)
		return true
	case errors.Is(err, ledger.ErrOutOfOrder) || errors.Is(err, ledger.ErrNotRegistered):
		logger.ErrorWithErr(ctx, "Ledger invariant violation, aborting signature run", err, "signature", r.signature, "date", date)
		return true
	default:
		// Retries exhausted or a non-fatal session error: record and move on
		// to the next date.
		logger.ErrorWithErr(ctx, "Session failed, advancing to next date", err, "signature", r.signature, "date", date)
		return false
	}
}

// afterSession runs the no-trade hook: exactly once per terminated session,
// after the ledger commit, and its failure is never fatal.
func (r *Runner) afterSession(ctx context.Context, date string) {
	v, ok, err := r.env.Get(r.signature, runtimeenv.KeyIfTrade)
	if err != nil {
		logger.Warn(ctx, "Could not read trade flag", "signature", r.signature, "date", date, "error", err)
		return
	}
	if ok && v == "true" {
		if err := r.env.Set(r.signature, runtimeenv.KeyIfTrade, "false"); err != nil {
			logger.Warn(ctx, "Could not reset trade flag", "signature", r.signature, "error", err)
		}
		return
	}
	if err := r.recorder.RecordNoTrade(r.signature, date); err != nil {
		logger.Warn(ctx, "No-trade record failed", "signature", r.signature, "date", date, "error", err)
	}
}

func dayBefore(date string) (string, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, -1).Format("2006-01-02"), nil
}
