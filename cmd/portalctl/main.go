// portalctl drives the patient portal from the command line: login, profile
// viewing and editing, report verification, and doctor assignment.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/medilink/patient-portal/internal/artifact"
	"github.com/medilink/patient-portal/internal/assign"
	"github.com/medilink/patient-portal/internal/config"
	"github.com/medilink/patient-portal/internal/digest"
	"github.com/medilink/patient-portal/internal/gateway"
	"github.com/medilink/patient-portal/internal/model"
	"github.com/medilink/patient-portal/internal/report"
	"github.com/medilink/patient-portal/internal/store"
	"github.com/medilink/patient-portal/pkg/logger"
	"github.com/medilink/patient-portal/pkg/metrics"
)

type app struct {
	cfg      *config.Config
	client   *gateway.Client
	store    *store.Store
	pipeline *artifact.Pipeline
	assigner *assign.Coordinator

	// committed is signalled once per successful submit, after the artifact
	// pipeline finishes. The CLI waits on it so the process does not exit
	// with the upload still in flight.
	committed sync.WaitGroup
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(&logger.Config{Level: cfg.Log.Level, Console: cfg.Log.Console, Output: os.Stderr})
	m := metrics.New()

	a := &app{cfg: cfg}

	a.client = gateway.NewClient(cfg.API.BaseURL,
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithLogger(log),
		gateway.WithMetrics(m),
		gateway.WithTokenSource(func() string { return a.store.Token() }),
	)

	a.pipeline = artifact.NewPipeline(report.NewRenderer(), a.client,
		artifact.WithLogger(log),
		artifact.WithMetrics(m),
	)

	a.store = store.New(a.client,
		store.WithLogger(log),
		store.WithSubmitTimeout(cfg.API.SubmitTimeout),
		store.WithCommitHook(func(rec model.PatientRecord) {
			defer a.committed.Done()
			a.pipeline.Run(rec)
		}),
	)

	a.assigner = assign.NewCoordinator(a.client, a.store, assign.WithLogger(log))
	return a, nil
}

func (a *app) tokenPath() string {
	if filepath.IsAbs(a.cfg.API.TokenFile) {
		return a.cfg.API.TokenFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return a.cfg.API.TokenFile
	}
	return filepath.Join(home, a.cfg.API.TokenFile)
}

func (a *app) readToken() string {
	raw, err := os.ReadFile(a.tokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (a *app) load(ctx context.Context) error {
	token := a.readToken()
	if token == "" {
		return fmt.Errorf("not logged in, run: portalctl login")
	}
	return a.store.Load(ctx, token)
}

func main() {
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Patient portal client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(loginCmd(), showCmd(), updateCmd(), doctorsCmd(), assignCmd(), verifyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Acquire and save a portal token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			token, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := os.WriteFile(a.tokenPath(), []byte(token), 0o600); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			fmt.Println("logged in as", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the committed profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			rec := a.store.Record()
			for _, row := range report.NewRenderer().Rows(rec) {
				fmt.Printf("%-22s %s\n", row.Field, row.Value)
			}
			return nil
		},
	}
}

func updateCmd() *cobra.Command {
	var sets []string
	var attach, out string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Edit profile fields and submit",
		Long: "Edits the profile transactionally: fields are staged on a draft and\n" +
			"committed in one submit. On success the server echo becomes the new\n" +
			"profile and the report artifact is regenerated and uploaded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			if err := a.store.BeginEdit(); err != nil {
				return err
			}

			for _, kv := range sets {
				parts := strings.SplitN(kv, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("bad --set %q, want field=value", kv)
				}
				if err := a.store.MutateDraft(model.Field(parts[0]), parts[1]); err != nil {
					return err
				}
			}

			if attach != "" {
				data, err := os.ReadFile(attach)
				if err != nil {
					return fmt.Errorf("failed to read attachment: %w", err)
				}
				err = a.store.SetAttachment(&model.Attachment{
					Filename:    filepath.Base(attach),
					ContentType: "image/png",
					Data:        data,
				})
				if err != nil {
					return err
				}
			}

			a.committed.Add(1)
			if err := a.store.Submit(cmd.Context()); err != nil {
				a.committed.Done()
				return err
			}
			a.committed.Wait()

			if art := a.pipeline.Last(); art != nil {
				fmt.Println("profile committed, report digest:", art.Digest)
				if out != "" {
					if err := os.WriteFile(out, art.Bytes, 0o644); err != nil {
						return fmt.Errorf("failed to write report: %w", err)
					}
					fmt.Println("report written to", out)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to change (repeatable)")
	cmd.Flags().StringVar(&attach, "attach", "", "prescription image to attach")
	cmd.Flags().StringVar(&out, "out", "", "write the generated report to this file")
	return cmd
}

func doctorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctors",
		Short: "List the doctor directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			doctors, err := a.assigner.ListAvailable(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range doctors {
				status := "unavailable"
				if d.Available {
					status = "available"
				}
				fmt.Printf("%-25s %-30s %-15s %s\n", d.Name, d.Email, d.Speciality, status)
			}
			return nil
		},
	}
}

func assignCmd() *cobra.Command {
	var doctorEmail string
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a doctor to the current patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			assignment, err := a.assigner.Assign(cmd.Context(), doctorEmail)
			if err != nil {
				return err
			}
			fmt.Printf("assigned %s <%s>\n", assignment.Name, assignment.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&doctorEmail, "doctor", "", "doctor email")
	cmd.MarkFlagRequired("doctor")
	return cmd
}

func verifyCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a downloaded report against the server-stored copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context()); err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read report: %w", err)
			}

			rec := a.store.Record()
			ok, err := artifact.VerifyStored(rec.Documents, digest.Sum(raw))
			if err != nil {
				return fmt.Errorf("failed to decode stored report: %w", err)
			}
			if !ok {
				return fmt.Errorf("digest mismatch: local report differs from the stored copy")
			}
			fmt.Println("report verified:", digest.Sum(raw))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "profile.pdf", "report file to verify")
	return cmd
}
