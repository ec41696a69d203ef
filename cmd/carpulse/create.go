/*
Copyright © 2025 CarPulse Data Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package main

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/Aariz1001/carpulse-data/internal/iodb"
	"github.com/Aariz1001/carpulse-data/internal/ioschema"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
)

func getCreateCmd() *cobra.Command {
	var (
		force   bool
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create or migrate the database schema",
		Long: `Create the CarPulse database schema from scratch.

When tables already exist the command asks for confirmation before
dropping them; use --force to skip the prompt. With --migrate the
schema is updated in place instead and no data is lost.

Examples:
  carpulse create
  carpulse create --force
  carpulse create --migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runCreate(force, migrate)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"drop existing tables without confirmation (destructive)")
	cmd.Flags().BoolVarP(&migrate, "migrate", "m", false,
		"update the schema in place, preserving data")

	return cmd
}

func runCreate(force, migrate bool) error {
	ctx := context.Background()

	op := iodb.New(cfg.Database)
	if err := op.Connect(ctx); err != nil {
		return err
	}
	defer op.Close()

	gn.Info(
		"Connected to database <em>%s</em> at <em>%s:%d</em>",
		cfg.Database.Database, cfg.Database.Host, cfg.Database.Port,
	)

	mgr := ioschema.NewManager(op)

	if migrate {
		if err := mgr.Migrate(ctx); err != nil {
			return err
		}
		gn.Info("Schema is up to date")
		return nil
	}

	hasTables, err := op.HasTables(ctx)
	if err != nil {
		return err
	}

	if hasTables && !force {
		gn.Warn(
			"Database <em>%s</em> already has tables. "+
				"They will be dropped together with their data.",
			cfg.Database.Database,
		)
		if !askConfirmation() {
			gn.Info("Canceled, no changes were made")
			return nil
		}
		force = true
	}

	if err = mgr.Create(ctx, force); err != nil {
		return err
	}

	gn.Info("Database schema created")
	return nil
}

// askConfirmation asks the user a yes/no question on stdin.
func askConfirmation() bool {
	reader := bufio.NewReader(os.Stdin)
	gn.Info("Do you want to proceed? (yes/no)")
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}
