package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"gorm.io/gorm"

	"contactos/internal/config"
	"contactos/internal/database"
	"contactos/internal/fixtures"
	"contactos/internal/i18n"
	"contactos/internal/services"
	"contactos/internal/util"
)

var version = "dev"

// CLI is the top-level command structure for manage.
type CLI struct {
	Version         kong.VersionFlag   `help:"Show version." short:"V"`
	Migrate         MigrateCmd         `cmd:"" help:"Create or update the database tables."`
	Createsuperuser CreateSuperuserCmd `cmd:"" name:"createsuperuser" help:"Create a staff account with full permissions."`
	Loaddata        LoaddataCmd        `cmd:"" name:"loaddata" help:"Install records from YAML fixture files."`
	Export          ExportCmd          `cmd:"" help:"Write contacts as CSV, optionally searched and filtered."`
}

// environment is bound into every command's Run.
type environment struct {
	cfg    *config.Config
	db     *gorm.DB
	stdout io.Writer
}

func (e *environment) contacts() *services.ContactAdmin {
	return services.NewContactAdmin(i18n.Printer(e.cfg.App.LanguageCode), e.cfg.App.Location())
}

// MigrateCmd creates or updates the tables of every model.
type MigrateCmd struct{}

// Run executes the migrate command.
func (c *MigrateCmd) Run(env *environment) error {
	if err := database.Migrate(env.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(env.stdout, "Migrations applied.")
	return nil
}

// CreateSuperuserCmd creates a superuser account.
type CreateSuperuserCmd struct {
	Username string `help:"Login name." required:""`
	Email    string `help:"E-mail address." required:""`
	Password string `help:"Password, at least 8 characters." required:"" env:"SUPERUSER_PASSWORD"`
	FullName string `help:"Display name." name:"full-name"`
}

// Run executes the createsuperuser command.
func (c *CreateSuperuserCmd) Run(ctx context.Context, env *environment) error {
	auth := services.NewAuthService(env.db, util.NewTokenIssuer(&env.cfg.Auth))
	user, err := auth.CreateUser(ctx, services.CreateUserParams{
		Username: c.Username,
		Email:    c.Email,
		Password: c.Password,
		FullName: c.FullName,
		IsAdmin:  true,
	})
	if err != nil {
		return fmt.Errorf("createsuperuser: %w", err)
	}
	fmt.Fprintf(env.stdout, "Superuser %q created successfully.\n", user.Username)
	return nil
}

// LoaddataCmd installs fixture files.
type LoaddataCmd struct {
	Files []string `arg:"" type:"existingfile" help:"YAML fixture files."`
}

// Run executes the loaddata command.
func (c *LoaddataCmd) Run(ctx context.Context, env *environment) error {
	loader := fixtures.NewLoader(env.db, env.contacts())
	total := 0
	for _, path := range c.Files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("loaddata: %w", err)
		}
		n, err := loader.Load(ctx, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("loaddata %s: %w", path, err)
		}
		total += n
	}
	fmt.Fprintf(env.stdout, "Installed %d object(s) from %d fixture(s)\n", total, len(c.Files))
	return nil
}

// ExportCmd writes contacts as CSV.
type ExportCmd struct {
	Filter string `help:"Creation date range: hoy, ayer, ultimos_7_dias, este_mes or ultimo_mes." short:"f"`
	Search string `help:"Search terms matched against name, email and phone." short:"q"`
	Output string `help:"Output file, - for stdout." short:"o" default:"-"`
}

// Run executes the export command.
func (c *ExportCmd) Run(ctx context.Context, env *environment) error {
	out := env.stdout
	if c.Output != "-" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		defer f.Close()
		out = f
	}

	n, err := env.contacts().ExportMatching(ctx, env.db, out, c.Search, c.Filter)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if c.Output != "-" {
		fmt.Fprintf(env.stdout, "Exported %d contact(s) to %s\n", n, c.Output)
	}
	return nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("manage"),
		kong.Description("Administrative tasks for the contacts service."),
		kong.Vars{"version": version},
		kong.Writers(stdout, os.Stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Printf("[DB] Error closing database: %v", err)
		}
	}()

	kctx.BindTo(ctx, (*context.Context)(nil))
	return kctx.Run(&environment{cfg: cfg, db: db, stdout: stdout})
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
