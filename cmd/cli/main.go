package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/infrastructure/auth"
	"github.com/campusmart/ledger/internal/infrastructure/logger"
	"github.com/campusmart/ledger/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
	token   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Campus marketplace ledger CLI",
		Long:          `A command line interface for operating the wallet ledger and settlement engine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&baseURL, "url", envOr("LEDGER_URL", "http://localhost:8080"), "Base URL of the ledger API")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("LEDGER_TOKEN"), "Bearer token of an admin caller")

	root.AddCommand(reconcileCmd(), paymentsCmd(), migrateCmd(), tokenCmd())
	return root
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [userId]",
		Short: "Compare wallet balances with their journals",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/admin/reconciliation"
			if len(args) == 1 {
				path += "/" + args[0]
			}

			var result map[string]any
			if err := call(http.MethodGet, path, nil, &result); err != nil {
				return err
			}
			printJSON(result)

			if reconciled, ok := result["isReconciled"].(bool); ok && !reconciled {
				return fmt.Errorf("wallet %s is out of balance", args[0])
			}
			if discrepancies, ok := result["discrepancies"].([]any); ok && len(discrepancies) > 0 {
				return fmt.Errorf("%d wallet(s) out of balance", len(discrepancies))
			}
			return nil
		},
	}
}

func paymentsCmd() *cobra.Command {
	payments := &cobra.Command{
		Use:   "payments",
		Short: "Gateway payment operations",
	}

	verify := &cobra.Command{
		Use:   "verify <reference>",
		Short: "Verify a payment reference with the gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result map[string]any
			if err := call(http.MethodPost, "/api/v1/payments/verify", map[string]string{"reference": args[0]}, &result); err != nil {
				return err
			}
			fmt.Printf("%s\t%v\t%s\n", args[0], result["status"], truncate(fmt.Sprint(result["message"]), 60))
			return nil
		},
	}

	var olderThan time.Duration
	var limit int
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Re-verify pending payments the gateway never reported back on",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]int{}
			if olderThan > 0 {
				body["olderThanSeconds"] = int(olderThan.Seconds())
			}
			if limit > 0 {
				body["limit"] = limit
			}

			var result map[string]any
			if err := call(http.MethodPost, "/api/v1/admin/payments/sweep", body, &result); err != nil {
				return err
			}
			printJSON(result)
			return nil
		},
	}
	sweep.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum age of a pending payment (server default when zero)")
	sweep.Flags().IntVar(&limit, "limit", 0, "Maximum payments to verify (server default when zero)")

	payments.AddCommand(verify, sweep)
	return payments
}

func migrateCmd() *cobra.Command {
	var databaseURL, source string

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	migrate.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	migrate.PersistentFlags().StringVar(&source, "source", envOr("MIGRATIONS_PATH", "file://migrations"), "Migrations source URL")

	migrator := func() (*postgres.Migrator, error) {
		if databaseURL == "" {
			return nil, fmt.Errorf("--database-url or DATABASE_URL is required")
		}
		log := logger.NewWithWriter(logger.Config{Level: "info", Format: "console", Service: "ledgerctl"}, os.Stderr)
		return postgres.NewMigrator(databaseURL, source, log), nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			return m.Up()
		},
	}

	down := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid steps %q", args[0])
				}
				steps = n
			}

			m, err := migrator()
			if err != nil {
				return err
			}
			return m.Down(steps)
		},
	}

	migrate.AddCommand(up, down)
	return migrate
}

func tokenCmd() *cobra.Command {
	var secret, issuer, role, email string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <userId>",
		Short: "Mint a bearer token for operators and local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}

			signed, err := auth.NewJWTManager(secret, issuer, ttl).Generate(&domain.Identity{
				UserID: args[0],
				Email:  email,
				Role:   domain.Role(strings.ToLower(role)),
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC signing secret")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "campusmart"), "Token issuer")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "Role: customer, vendor or admin")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

// call sends a JSON request to the API and decodes a 2xx response into out.
func call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, strings.TrimRight(baseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, truncate(string(data), 200))
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(data))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
