package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List allow-listed tables and their column catalogs",
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

			ctx := context.Background()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			for _, table := range st.engine.AllowList().Tables() {
				cols, err := st.loader.Load(ctx, table)
				if err != nil {
					fmt.Fprintf(w, "%s\t(unavailable: %v)\n", table, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%d columns\n", table, cols.Len())
				for _, c := range cols.Columns() {
					flags := ""
					if c.IsPrimaryKey {
						flags += " PK"
					}
					if c.IsIdentity {
						flags += " IDENTITY"
					}
					if !c.Nullable {
						flags += " NOT NULL"
					}
					fmt.Fprintf(w, "  %s\t%s%s\n", c.Name, c.DeclaredType, flags)
				}
			}
			return nil
		},
	}
	return cmd
}
