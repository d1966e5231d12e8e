package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/migrate"
	"taskflow/internal/server"
	"taskflow/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "tf",
	Short: "Task flow CLI",
	Long: `Task flow tracks customers, their projects, and the activities inside
each project. Every record is addressed by an opaque external key; internal
ids never leave the process. Run 'tf serve' to expose the HTTP API.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "taskflow.yml", "path to config file")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(customerCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(activityCmd())
}

// loadConfig reads the config file when present, starting from defaults, and
// lets TASKFLOW_* environment variables win for secrets.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if v := viper.GetString("api-key"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := viper.GetString("jwt-secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := viper.GetString("db-path"); v != "" {
		cfg.DB.Path = v
	}
	if v := viper.GetString("addr"); v != "" {
		cfg.Service.Addr = v
	}
	return cfg, cfg.Validate()
}

func newLogger() zerolog.Logger {
	if viper.GetBool("json") {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	conn, err := db.Open(cfg.Pool())
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func withServices(ctx context.Context, fn func(context.Context, service.Services) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	svcs := service.New(conn, service.Options{
		Logger:         newLogger(),
		AcquireTimeout: cfg.AcquireTimeout(),
	})
	return fn(ctx, svcs)
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Service.Addr = addr
			}
			if cfg.Auth.APIKey == "" {
				return fmt.Errorf("auth.api_key (or TASKFLOW_API_KEY) is required to serve")
			}
			log := newLogger()
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			svcs := service.New(conn, service.Options{
				Logger:         log,
				AcquireTimeout: cfg.AcquireTimeout(),
			})
			handler, err := server.New(server.Config{
				Services: svcs,
				BasePath: cfg.Service.BasePath,
				Title:    cfg.Service.Name,
				Auth: server.AuthConfig{
					APIKey:       cfg.Auth.APIKey,
					APIKeyHeader: cfg.Auth.APIKeyHeader,
					JWTSecret:    cfg.Auth.JWTSecret,
					Logger:       log,
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Service.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			log.Info().
				Str("addr", cfg.Service.Addr).
				Str("base_path", cfg.Service.BasePath).
				Str("db", db.Path(cfg.Pool())).
				Msg("serving task flow API")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			v, err := migrate.Version(conn)
			if err != nil {
				return err
			}
			fmt.Printf("database %s at schema version %d\n", db.Path(cfg.Pool()), v)
			return nil
		},
	}
}

func customerCmd() *cobra.Command {
	c := &cobra.Command{Use: "customer", Short: "Manage customers"}
	c.AddCommand(customerCreateCmd())
	c.AddCommand(customerShowCmd())
	c.AddCommand(customerUpdateCmd())
	return c
}

func customerCreateCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svcs service.Services) error {
				c, err := svcs.Customers.Create(ctx, service.CreateCustomerInput{Name: name, Email: email})
				if err != nil {
					return err
				}
				return printJSONOrTable(c, customerRow(c))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "customer name")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func customerShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <customer_key>",
		Short: "Show a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svcs service.Services) error {
				c, err := svcs.Customers.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c, customerRow(c))
			})
		},
	}
	return cmd
}

func customerUpdateCmd() *cobra.Command {
	var name, email, status string
	cmd := &cobra.Command{
		Use:   "update <customer_key>",
		Short: "Update a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svcs service.Services) error {
				c, err := svcs.Customers.Update(ctx, args[0], service.UpdateCustomerInput{
					Name:   name,
					Email:  email,
					Status: status,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c, customerRow(c))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "customer name")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&status, "status", "", "status (active, inactive, suspended)")
	return cmd
}

func projectCmd() *cobra.Command {
	p := &cobra.Command{Use: "project", Short: "Manage projects"}
	p.AddCommand(projectCreateCmd())
	p.AddCommand(projectShowCmd())
	p.AddCommand(projectUpdateCmd())
	p.AddCommand(projectListCmd())
	return p
}

func projectCreateCmd() *cobra.Command {
	var name, customerKey, dueDate string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svcs service.Services) error {
				p, err := svcs.Projects.Create(ctx, service.CreateProjectInput{
					Name:        name,
					CustomerKey: customerKey,
					DueDate:     dueDate,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p, projectRow(p))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&customerKey, "customer", "", "customer key")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <project_key>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svcs service.Services) error {
				p, err := svcs.Projects.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p, projectRow(p))
			})
		},
	}
	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var name, status, dueDate string
	cmd := &cobra.Command{
		Use:   "update <project_key>",
		Short: "Update a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svcs service.Services) error {
				p, err := svcs.Projects.Update(ctx, args[0], service.UpdateProjectInput{
					Name:    name,
					Status:  status,
					DueDate: dueDate,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p, projectRow(p))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&status, "status", "", "status (open, closed)")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date (YYYY-MM-DD)")
	return cmd
}

func projectListCmd() *cobra.Command {
	var status, dueDate string
	var includeActivities bool
	var limit, page int
	cmd := &cobra.Command{
		Use:   "list <customer_key>",
		Short: "List projects for a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svcs service.Services) error {
				res, err := svcs.Projects.ListByCustomer(ctx, service.ListProjectsInput{
					CustomerKey:       args[0],
					IncludeActivities: includeActivities,
					Status:            status,
					DueDate:           dueDate,
					Limit:             limit,
					Page:              page,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Key", "Name", "Status", "Due", "Activities"})
				for _, p := range res.Projects {
					tw.AppendRow(table.Row{p.ProjectKey, p.Name, p.Status, p.DueDate, len(p.Activities)})
				}
				tw.Render()
				fmt.Printf("page %d/%d, %d project(s) total\n", res.CurrentPage, res.TotalPages, res.TotalItems)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "open", "status filter (open, closed)")
	cmd.Flags().StringVar(&dueDate, "due-before", "", "only projects due on or before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&includeActivities, "activities", false, "include each project's activities")
	cmd.Flags().IntVar(&limit, "limit", 100, "page size")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func activityCmd() *cobra.Command {
	a := &cobra.Command{Use: "activity", Short: "Manage activities"}
	a.AddCommand(activityCreateCmd())
	a.AddCommand(activityShowCmd())
	a.AddCommand(activityUpdateCmd())
	return a
}

func activityCreateCmd() *cobra.Command {
	var description, projectKey, dueDate string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svcs service.Services) error {
				a, err := svcs.Activities.Create(ctx, service.CreateActivityInput{
					Description: description,
					ProjectKey:  projectKey,
					DueDate:     dueDate,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(a, activityRow(a))
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "what the activity is")
	cmd.Flags().StringVar(&projectKey, "project", "", "project key")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func activityShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <activity_key>",
		Short: "Show an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svcs service.Services) error {
				a, err := svcs.Activities.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(a, activityRow(a))
			})
		},
	}
	return cmd
}

func activityUpdateCmd() *cobra.Command {
	var description, status, dueDate string
	cmd := &cobra.Command{
		Use:   "update <activity_key>",
		Short: "Update an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svcs service.Services) error {
				a, err := svcs.Activities.Update(ctx, args[0], service.UpdateActivityInput{
					Description: description,
					Status:      status,
					DueDate:     dueDate,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(a, activityRow(a))
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "what the activity is")
	cmd.Flags().StringVar(&status, "status", "", "status (not_started, in_progress, completed, blocked)")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date (YYYY-MM-DD)")
	return cmd
}

// --- output helpers ---

type row struct {
	header table.Row
	values table.Row
}

func customerRow(c service.CustomerResponse) row {
	return row{
		header: table.Row{"Key", "Name", "Email", "Status", "Updated"},
		values: table.Row{c.CustomerKey, c.Name, c.Email, c.Status, c.UpdatedAt},
	}
}

func projectRow(p service.ProjectResponse) row {
	return row{
		header: table.Row{"Key", "Name", "Status", "Customer", "Due"},
		values: table.Row{p.ProjectKey, p.Name, p.Status, p.CustomerKey, p.DueDate},
	}
}

func activityRow(a service.ActivityResponse) row {
	return row{
		header: table.Row{"Key", "Project", "Description", "Status", "Due"},
		values: table.Row{a.ActivityKey, a.ProjectKey, a.Description, a.Status, a.DueDate},
	}
}

func printJSONOrTable(v any, r row) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(r.header)
	tw.AppendRow(r.values)
	tw.Render()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
