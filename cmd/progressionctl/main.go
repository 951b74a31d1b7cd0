package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tmduggan/gordon/internal/config"
	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/progression"
	"github.com/tmduggan/gordon/internal/progression/level"
	"github.com/tmduggan/gordon/internal/timeutil"
)

type options struct {
	env        string
	configPath string
	now        string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "progressionctl",
		Short:         "progressionctl - inspect and replay progression data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "", "config environment; empty uses the default curve")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "./config.toml", "path for the TOML config file")
	rootCmd.PersistentFlags().StringVar(&opts.now, "now", "", "evaluation time, defaults to the current time")

	rootCmd.AddCommand(newLevelCmd(opts), newReplayCmd(opts), newFetchCmd())
	return rootCmd
}

func newLevelCmd(opts *options) *cobra.Command {
	var (
		totalXP int64
		created string
	)
	cmd := &cobra.Command{
		Use:   "level",
		Short: "Show the level info of an XP amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			curve, err := opts.curve()
			if err != nil {
				return err
			}
			now, err := opts.evaluationTime()
			if err != nil {
				return err
			}
			var createdAt time.Time
			if created != "" {
				t, ok := timeutil.Normalize(created)
				if !ok {
					return fmt.Errorf("invalid created time: %q", created)
				}
				createdAt = t
			}

			info, err := curve.FromXP(totalXP, createdAt, now)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}
	cmd.Flags().Int64Var(&totalXP, "xp", 0, "total XP")
	cmd.Flags().StringVar(&created, "created", "", "account creation time")
	return cmd
}

func newReplayCmd(opts *options) *cobra.Command {
	var (
		logsPath    string
		libraryPath string
		userID      string
		created     string
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompute a progression snapshot from exported logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			curve, err := opts.curve()
			if err != nil {
				return err
			}
			now, err := opts.evaluationTime()
			if err != nil {
				return err
			}

			var logs []gymlog.LogEntry
			if err := readJSONFile(logsPath, &logs); err != nil {
				return fmt.Errorf("read logs: %w", err)
			}
			var exercises []gymlog.ExerciseMeta
			if libraryPath != "" {
				if err := readJSONFile(libraryPath, &exercises); err != nil {
					return fmt.Errorf("read library: %w", err)
				}
			}

			createdAt := now
			if created != "" {
				t, ok := timeutil.Normalize(created)
				if !ok {
					return fmt.Errorf("invalid created time: %q", created)
				}
				createdAt = t
			}

			engine := progression.NewEngine(curve)
			snapshot, err := engine.Recompute(gymlog.NewProfile(userID, createdAt), logs, gymlog.NewCatalog(exercises), now)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), snapshot)
		},
	}
	cmd.Flags().StringVar(&logsPath, "logs", "", "JSON file with the workout logs")
	cmd.Flags().StringVar(&libraryPath, "library", "", "JSON file with the exercise library")
	cmd.Flags().StringVar(&userID, "user", "local", "user id of the replayed profile")
	cmd.Flags().StringVar(&created, "created", "", "account creation time, defaults to --now")
	_ = cmd.MarkFlagRequired("logs")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var (
		addr    string
		userID  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a user's progression snapshot from a running service",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{
				Transport: otelhttp.NewTransport(http.DefaultTransport),
				Timeout:   timeout,
			}
			return fetchProgress(cmd.Context(), client, addr, userID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "service base URL")
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func fetchProgress(ctx context.Context, client *http.Client, addr, userID string, out io.Writer) error {
	reqURL, err := url.JoinPath(addr, "progression", userID)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get progress: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("get progress: status %d: %s", resp.StatusCode, body)
	}

	var snapshot progression.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return writeJSON(out, snapshot)
}

func (o *options) curve() (*level.Curve, error) {
	if o.env == "" {
		return level.DefaultCurve(), nil
	}
	cfg, err := config.Load(o.env, o.configPath)
	if err != nil {
		return nil, err
	}
	return cfg.LevelCurve()
}

func (o *options) evaluationTime() (time.Time, error) {
	if o.now == "" {
		return time.Now(), nil
	}
	t, ok := timeutil.Normalize(o.now)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid --now: %q", o.now)
	}
	return t, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
