package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zlovtnik/graphqlScala-sub003/internal/pkresolver"
	"github.com/zlovtnik/graphqlScala-sub003/internal/server"
	"github.com/zlovtnik/graphqlScala-sub003/internal/service"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ssf API server",
		Long:  "Start the HTTP server exposing the dynamic CRUD engine over allow-listed tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, verbose)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, verbose bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, verbose)

	st, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("engine initialized",
		"dialect", st.dialect.Name(),
		"allowed_tables", st.engine.AllowList().Tables(),
		"audit_table", cfg.Audit.Table)

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty - issued tokens are not secure")
	}
	authSvc := service.NewAuthService(cfg.Auth.JWTSecret, cfg.JWTExpiry())

	// Server-side key resolution has no interactive fallback; tables without
	// a declared key report an error instead of prompting.
	keys := pkresolver.New(st.loader, nil)

	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		CORSOrigins:     cfg.Server.CORS.Origins,
		RateLimit:       cfg.Server.RateLimit,
	}
	if viper.GetInt("server.port") != 0 {
		srvCfg.Port = viper.GetInt("server.port")
	}
	if v := viper.GetString("server.host"); v != "" {
		srvCfg.Host = v
	}

	srv := server.New(srvCfg, st.engine, st.reader, keys, authSvc, st.db, st.auditDB, logger)
	return srv.ListenAndServe()
}
