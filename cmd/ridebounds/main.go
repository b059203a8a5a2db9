package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/ridebounds/internal/config"
	"github.com/TobiSchelling/ridebounds/internal/database"
	"github.com/TobiSchelling/ridebounds/internal/datebounds"
	"github.com/TobiSchelling/ridebounds/internal/htmlform"
	"github.com/TobiSchelling/ridebounds/internal/logging"
	"github.com/TobiSchelling/ridebounds/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	err := rootCmd.Execute()
	zap.L().Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ridebounds",
	Short:   "Date bounds for carpool ride forms",
	Long:    "ridebounds limits ride date inputs to the range from today through 365 days from now.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			_, err := logging.New("INFO", verbose)
			return err
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath != "":
			return err
		default:
			cfg = config.Default()
		}

		_, err = logging.New(cfg.Logging.Level, verbose)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(boundsCmd)
	rootCmd.AddCommand(constrainCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ridesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ridebounds", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/ridebounds/",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Fprintf(out, "Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Fprintf(out, "Created config: %s\n", target)
		fmt.Fprintln(out, "Edit it to set the timezone, input selectors, and server port.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current bounds and ride counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		c, err := newConstrainer()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		b := c.Bounds(datebounds.DateLayout)
		stats, err := db.GetStats(b.Min)
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Fprintf(out, "Today: %s (%s)\n", b.Min, c.Location())
		fmt.Fprintf(out, "Latest selectable date: %s\n\n", b.Max)
		fmt.Fprintln(out, "Rides:")
		fmt.Fprintf(out, "  Total: %d\n", stats.TotalRides)
		fmt.Fprintf(out, "  Upcoming: %d\n", stats.UpcomingRides)
		fmt.Fprintf(out, "  Seats offered: %d\n", stats.SeatsOffered)
		return nil
	},
}

// --- bounds command ---

var boundsDateTime bool

var boundsCmd = &cobra.Command{
	Use:   "bounds",
	Short: "Print the min and max values for date inputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConstrainer()
		if err != nil {
			return err
		}
		layout := datebounds.DateLayout
		if boundsDateTime {
			layout = datebounds.DateTimeLayout
		}
		b := c.Bounds(layout)
		fmt.Fprintf(cmd.OutOrStdout(), "min=%s\nmax=%s\n", b.Min, b.Max)
		return nil
	},
}

func init() {
	boundsCmd.Flags().BoolVar(&boundsDateTime, "datetime", false, "Use datetime-local precision (YYYY-MM-DDTHH:MM)")
}

// --- constrain command ---

var (
	constrainSelectors []string
	constrainOutput    string
)

var constrainCmd = &cobra.Command{
	Use:   "constrain [file]",
	Short: "Set min/max on date inputs in an HTML file (stdin if omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConstrainer()
		if err != nil {
			return err
		}

		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening input: %w", err)
			}
			defer f.Close()
			in = f
		}

		var out io.Writer = cmd.OutOrStdout()
		if constrainOutput != "" {
			f, err := os.Create(constrainOutput)
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			defer f.Close()
			out = f
		}

		selectors := constrainSelectors
		if len(selectors) == 0 {
			selectors = cfg.Bounds.Selectors
		}

		n, err := htmlform.ConstrainHTML(in, out, c, selectors)
		if err != nil {
			return err
		}
		zap.L().Debug("constrained date inputs", zap.Int("count", n), zap.Strings("selectors", selectors))
		return nil
	},
}

func init() {
	constrainCmd.Flags().StringArrayVarP(&constrainSelectors, "selector", "s", nil, "CSS selector of inputs to constrain (repeatable)")
	constrainCmd.Flags().StringVarP(&constrainOutput, "output", "o", "", "Write result to file instead of stdout")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConstrainer()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, c, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- rides command ---

var ridesCmd = &cobra.Command{
	Use:   "rides",
	Short: "Manage ride offers",
}

var ridesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List upcoming rides",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		c, err := newConstrainer()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rides, err := db.GetRidesFrom(c.Bounds(datebounds.DateLayout).Min)
		if err != nil {
			return err
		}

		if len(rides) == 0 {
			fmt.Fprintln(out, "No upcoming rides. Add one with: ridebounds rides add")
			return nil
		}

		fmt.Fprintln(out, "Upcoming rides:")
		fmt.Fprintln(out)
		for _, r := range rides {
			fmt.Fprintf(out, "  [%d] %s  %s -> %s  (%d seat(s), %.2f)\n",
				r.ID, r.DepartureDate, r.Departure, r.Arrival, r.SeatsOffered, r.Price)
			if r.Comment != nil && *r.Comment != "" {
				fmt.Fprintf(out, "        %s\n", truncate(*r.Comment, 60))
			}
		}
		return nil
	},
}

var (
	rideSeats   int
	ridePrice   float64
	rideComment string
)

var ridesAddCmd = &cobra.Command{
	Use:   "add [departure] [arrival] [date]",
	Short: "Add a ride offer",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ride := database.Ride{
			Departure:     args[0],
			Arrival:       args[1],
			DepartureDate: args[2],
			SeatsOffered:  rideSeats,
			Price:         ridePrice,
		}
		if rideComment != "" {
			ride.Comment = &rideComment
		}

		id, err := db.InsertRide(ride)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Added ride [%d]: %s -> %s on %s\n", id, ride.Departure, ride.Arrival, ride.DepartureDate)
		return nil
	},
}

func init() {
	ridesAddCmd.Flags().IntVar(&rideSeats, "seats", 1, "Seats offered")
	ridesAddCmd.Flags().Float64Var(&ridePrice, "price", 0, "Price per seat")
	ridesAddCmd.Flags().StringVar(&rideComment, "comment", "", "Comment (markdown)")
}

var ridesRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a ride offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ride ID: %s", args[0])
		}

		ride, err := db.GetRide(id)
		if err != nil {
			return err
		}
		if ride == nil {
			return fmt.Errorf("ride %d not found", id)
		}

		if err := db.DeleteRide(id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed ride [%d]: %s -> %s\n", id, ride.Departure, ride.Arrival)
		return nil
	},
}

func init() {
	ridesCmd.AddCommand(ridesListCmd)
	ridesCmd.AddCommand(ridesAddCmd)
	ridesCmd.AddCommand(ridesRemoveCmd)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func newConstrainer() (*datebounds.Constrainer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return datebounds.New(datebounds.WithLocation(loc), datebounds.WithLogger(zap.L())), nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "ridebounds.db")
	return database.Open(dbPath)
}
