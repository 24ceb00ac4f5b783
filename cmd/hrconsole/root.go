package main

import (
	"fmt"
	"io"

	"github.com/jrsteele09/hr-console/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hrconsole",
		Short: "Terminal client of the HR attendance console",
		Long: `hrconsole signs in to the attendance backend with an admin or HR
account and shows the same data as the web console.

The session is kept in the session file between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", config.GetEnv("HRCONSOLE_CONFIG", "hrconsole.yaml"), "Path to the YAML configuration")

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		whoamiCmd(),
		attendanceCmd(),
		summaryCmd(),
		employeesCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

func fallback(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
