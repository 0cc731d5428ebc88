// Command mbcontact evaluates the contact and impulse derivative layer on a
// scenario file (or stdin) and writes a JSON report to stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cxd309/mbcontact/internal/config"
	"github.com/cxd309/mbcontact/internal/engine"
)

var (
	settings  config.Settings
	workers   int
	tolerance float64
	pretty    bool
)

var rootCmd = &cobra.Command{
	Use:   "mbcontact",
	Short: "Evaluate center-of-pressure costs and impulse models on a scenario",
	Long: `mbcontact builds a robot model and the trajectory nodes of a scenario,
then evaluates every node's contact-dependent costs and impulse models.

Runtime settings are read from the environment:
  MBCONTACT_LOG_LEVEL      zerolog level (default info)
  MBCONTACT_FD_STEP        finite-difference step (default 1e-6)
  MBCONTACT_FD_TOLERANCE   derivative check tolerance (default 1e-5)
  MBCONTACT_WORKERS        nodes evaluated at once (default GOMAXPROCS)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.ParseEnv()
		if err != nil {
			return err
		}
		lvl, _ := s.Level()
		zerolog.SetGlobalLevel(lvl)
		settings = s
		if !cmd.Flags().Changed("workers") {
			workers = s.Workers
		}
		return nil
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval [scenario]",
	Short: "Evaluate every node and print the report",
	Example: `  mbcontact eval examples/stance.yaml
  cat scenario.json | mbcontact eval`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEval,
}

var checkCmd = &cobra.Command{
	Use:   "check [scenario]",
	Short: "Compare analytic derivatives with finite differences",
	Long: `Compare every node's cost gradient and impulse velocity derivatives with
central finite differences. Exits with a non-zero status when any relative
error exceeds the tolerance.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Nodes evaluated at once (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")
	checkCmd.Flags().Float64Var(&tolerance, "tolerance", 0, "Relative error tolerance (default MBCONTACT_FD_TOLERANCE)")

	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("mbcontact failed")
		os.Exit(1)
	}
}

// loadEngine reads the scenario named by args, or stdin when there is none.
func loadEngine(args []string) (*engine.Engine, error) {
	var (
		sc  engine.Scenario
		err error
	)
	if len(args) > 0 && args[0] != "-" {
		sc, err = config.LoadScenario(args[0])
	} else {
		var data []byte
		if data, err = io.ReadAll(os.Stdin); err != nil {
			return nil, fmt.Errorf("error reading input: %w", err)
		}
		sc, err = config.ParseScenario(data)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("scenario", sc.Meta.ScenarioID).Int("nodes", len(sc.Nodes)).Msg("scenario loaded")

	return engine.New(sc,
		engine.WithWorkers(workers),
		engine.WithFDStep(settings.FDStep),
		engine.WithLogger(log.Logger),
	)
}

func runEval(cmd *cobra.Command, args []string) error {
	e, err := loadEngine(args)
	if err != nil {
		return err
	}
	report, err := e.Run(cmd.Context())
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), report)
}

func runCheck(cmd *cobra.Command, args []string) error {
	e, err := loadEngine(args)
	if err != nil {
		return err
	}
	tol := tolerance
	if tol <= 0 {
		tol = settings.FDTolerance
	}
	res, err := e.Check(cmd.Context(), tol)
	if err != nil {
		return err
	}
	if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Passed {
		return fmt.Errorf("derivative check failed at tolerance %g", tol)
	}
	log.Info().Float64("tolerance", tol).Msg("derivative check passed")
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	return nil
}
