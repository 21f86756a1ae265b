package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
	"github.com/zlovtnik/graphqlScala-sub003/internal/pkresolver"
)

func newResolvePKCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve-pk <table>",
		Short: "Resolve the primary-key columns of an allow-listed table",
		Long: `Resolve the primary-key columns of a table from the database catalog.
When the catalog declares no primary key, the command lists the table's
columns and asks which ones identify a row.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, false)

			st, err := buildStack(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			resolver := pkresolver.New(st.loader, promptKeySelection(cmd))
			keys, err := resolver.Resolve(context.Background(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n",
				strings.ToUpper(strings.TrimSpace(args[0])), strings.Join(keys, ", "))
			return nil
		},
	}
	return cmd
}

// promptKeySelection asks the operator to pick key columns by number from
// the listed catalog, comma-separated.
func promptKeySelection(cmd *cobra.Command) pkresolver.SelectFunc {
	return func(table string, columns []model.ColumnMeta) ([]string, error) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "No primary key declared for %s. Columns:\n", table)
		for i, c := range columns {
			fmt.Fprintf(out, "  %2d) %s (%s)\n", i+1, c.Name, c.DeclaredType)
		}
		fmt.Fprint(out, "Select key column numbers (comma-separated): ")

		reader := bufio.NewReader(cmd.InOrStdin())
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read selection: %w", err)
		}

		var chosen []string
		for _, part := range strings.Split(strings.TrimSpace(line), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 || n > len(columns) {
				return nil, fmt.Errorf("invalid selection %q", part)
			}
			chosen = append(chosen, columns[n-1].Name)
		}
		if len(chosen) == 0 {
			return nil, fmt.Errorf("no columns selected")
		}
		return chosen, nil
	}
}
