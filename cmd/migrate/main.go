// The migrate command copies records from the document platform to the
// Postgres provider and validates the outcome. Results are printed as JSON.
//
// Usage:
//
//	migrate [-y] <action>
//
// where action is one of migrate-users, migrate-agreements, migrate-files,
// full-migration, validate.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/splitsheet/splitsheet/internal/config"
	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/migration"
	"github.com/splitsheet/splitsheet/internal/provider/docstore"
	"github.com/splitsheet/splitsheet/internal/provider/pgstore"
)

func main() {

	_ = godotenv.Load()

	args := os.Args[1:]
	skipConfirm := false
	if len(args) > 0 && args[0] == "-y" {
		skipConfirm = true
		args = args[1:]
	}
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate [-y] <action>")
		os.Exit(2)
	}
	action := args[0]

	if action == migration.ActionFullMigration && !skipConfirm {
		if !confirm("Run the full migration against the configured databases?") {
			fmt.Fprintln(os.Stderr, "aborted")
			os.Exit(1)
		}
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewLogger(cfg.AppEnv)

	source := docstore.New(cfg, logger)
	target, err := pgstore.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer target.Close()

	result := migration.NewTools(source, target, logger).Run(ctx, action)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}

}

// confirm asks for an interactive yes. A non-interactive stdin counts as a
// refusal, so scripted runs must pass -y explicitly.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}

	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
