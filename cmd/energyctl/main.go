// Command energyctl prints and exports the energy distribution of the fleet
// straight from the energia API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/energia/energia-dashboard/internal/api"
	"github.com/energia/energia-dashboard/internal/config"
	"github.com/energia/energia-dashboard/internal/domain"
	"github.com/energia/energia-dashboard/internal/report"
)

// errOverAllocated makes check exit with status 1.
var errOverAllocated = errors.New("over-allocated matrizes found")

// fleetSource is what the commands read from.
type fleetSource interface {
	ListGenerators(ctx context.Context) ([]domain.Generator, error)
	ListDependents(ctx context.Context) ([]domain.DependentUnit, error)
}

// connectFunc logs in and returns a context carrying the API token.
type connectFunc func(ctx context.Context) (context.Context, fleetSource, error)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(config.LogLevel())

	root := newRootCmd(os.Stdout, remoteConnect)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errOverAllocated) {
			log.Error().Err(err).Msg("energyctl failed")
		}
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, connect connectFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "energyctl",
		Short:         "Inspect the energy distribution of matrizes and filiais",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String("api-url", config.APIURL(), "energia API base URL (API_URL)")
	flags.String("username", "", "API username (API_USERNAME)")
	flags.String("password", "", "API password (API_PASSWORD)")
	flags.Duration("timeout", config.APITimeout(), "API request timeout (API_TIMEOUT)")
	_ = viper.BindPFlag("API_URL", flags.Lookup("api-url"))
	_ = viper.BindPFlag("API_USERNAME", flags.Lookup("username"))
	_ = viper.BindPFlag("API_PASSWORD", flags.Lookup("password"))
	_ = viper.BindPFlag("API_TIMEOUT", flags.Lookup("timeout"))

	root.AddCommand(
		newReportCmd(connect),
		newExportCmd(connect),
		newCheckCmd(connect),
		newWatchCmd(),
	)
	return root
}

func remoteConnect(ctx context.Context) (context.Context, fleetSource, error) {
	client := api.New(config.APIURL(), config.APITimeout())
	creds := domain.Credentials{Username: config.APIUsername(), Password: config.APIPassword()}
	if creds.Username == "" || creds.Password == "" {
		return nil, nil, errors.New("username and password are required (--username/--password or API_USERNAME/API_PASSWORD)")
	}
	id, err := client.Authenticate(ctx, creds)
	if err != nil {
		return nil, nil, fmt.Errorf("login: %w", err)
	}
	log.Debug().Str("username", id.Username).Msg("logged in")
	return api.WithToken(ctx, id.Token), client, nil
}

// load fetches the fleet and builds the report.
func load(cmd *cobra.Command, connect connectFunc) (*report.Report, error) {
	ctx, src, err := connect(cmd.Context())
	if err != nil {
		return nil, err
	}
	gens, err := src.ListGenerators(ctx)
	if err != nil {
		return nil, fmt.Errorf("list matrizes: %w", err)
	}
	deps, err := src.ListDependents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list filiais: %w", err)
	}
	r := report.Build(gens, deps, time.Now())
	return &r, nil
}
