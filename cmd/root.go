package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/eltwork/eltctl/internal/utils/logger"
)

var (
	cfgFile  string
	logLevel string
	output   string
	strict   bool
)

// DefaultProjectFile is the root descriptor loaded when no argument is given
const DefaultProjectFile = "project.yml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eltctl",
	Short: "Loader and validator for ELT project descriptors",
	Long: `eltctl loads declarative ELT project descriptors (schedules, jobs,
environments, and plugin definitions), expands their include_paths globs,
validates the merged configuration, and exposes the result for inspection.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		// A refused build already printed its report; anything else is a
		// genuine command failure worth logging.
		if !errors.Is(err, errValidationFailed) {
			logger.Error("Command execution failed", zap.Error(err))
		}
		logger.Sync()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/eltctl/eltctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table|yaml)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "treat unresolved plugin references as errors")

	// Bind flags to viper
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("strict", rootCmd.PersistentFlags().Lookup("strict"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name "eltctl" (without extension).
		viper.AddConfigPath(home + "/.config/eltctl")
		viper.SetConfigType("yaml")
		viper.SetConfigName("eltctl")
	}

	viper.SetEnvPrefix("ELTCTL")
	viper.AutomaticEnv() // read in environment variables that match

	// Initialize the logger
	if err := logger.Init(logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("Using config file", zap.String("file", viper.ConfigFileUsed()))
	}
}

// projectFileArg resolves the optional positional project-file argument
func projectFileArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return DefaultProjectFile
}
