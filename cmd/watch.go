package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eltwork/eltctl/internal/loader"
	"github.com/eltwork/eltctl/internal/utils/logger"
	"github.com/eltwork/eltctl/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [project-file]",
	Short: "Re-validate a project whenever its files change",
	Long: `Watch a project descriptor and every file matched by its include_paths,
re-running validation after each change. Useful while editing a project.

Press Ctrl-C to stop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectFile := projectFileArg(args)

		if _, err := os.Stat(projectFile); err != nil {
			return fmt.Errorf("project file not found: %s", projectFile)
		}

		revalidate := func() error {
			result, err := loader.Load(cmd.Context(), projectFile, loader.Options{Strict: strict})
			if err != nil {
				fmt.Printf("load failed: %v\n", err)
				return err
			}
			fmt.Println(result.Report.Format())
			return nil
		}

		// First pass also tells us which include files to watch.
		result, err := loader.Load(cmd.Context(), projectFile, loader.Options{Strict: strict})
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		fmt.Println(result.Report.Format())

		w, err := watcher.New(revalidate)
		if err != nil {
			return err
		}
		defer w.Close()

		if err := w.Watch(result.Files()...); err != nil {
			return err
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Info("stopping watch", zap.String("project", projectFile))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
