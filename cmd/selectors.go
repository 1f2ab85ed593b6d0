package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/forkbridge/internal/browser"
	"github.com/example/forkbridge/internal/thefork"
)

func newSelectorsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "selectors",
		Short: "Print the effective widget selectors as YAML",
		Long: "Print the widget selectors after applying the override file, if any. " +
			"The output is a complete override file that can be edited and pointed to with SELECTORS_FILE.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("file") {
				file = a.cfg.SelectorsFile
			}
			catalog, err := thefork.OpenCatalog(file)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(catalog.Get())
			if err != nil {
				return fmt.Errorf("encode selectors: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "override file to validate (default SELECTORS_FILE)")
	return cmd
}

func newInstallBrowserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install-browser",
		Short: "Download the playwright driver and chromium",
		RunE: func(cmd *cobra.Command, args []string) error {
			return browser.InstallChromium()
		},
	}
}
