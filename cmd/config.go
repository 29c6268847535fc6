package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marcus/modalkit/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show or change dialog defaults",
	GroupID: "system",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd.OutOrStdout(), getBaseDir())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change stored defaults",
	Long: `Change stored defaults. Only the flags you pass are written; the rest
of .modalkit/config.json is left as is.`,
	Example: `  modalkit config set --confirm-text "Yes, delete" --fade-ms 150`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().NFlag() == 0 {
			return fmt.Errorf("nothing to set; pass at least one flag")
		}
		if err := setConfig(getBaseDir(), cmd.Flags()); err != nil {
			return err
		}
		return showConfig(cmd.OutOrStdout(), getBaseDir())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd)

	f := configSetCmd.Flags()
	f.String("confirm-header", "", "Default confirm header (HTML)")
	f.String("confirm-body", "", "Default confirm body (HTML)")
	f.String("confirm-text", "", "Default confirm button label")
	f.String("cancel-text", "", "Default cancel button label")
	f.Int("fade-ms", 0, "Fade duration in milliseconds")
}

func showConfig(w io.Writer, dir string) error {
	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	data, err := json.MarshalIndent(cfg.WithDefaults(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// setConfig writes the flags the user changed into the stored config.
func setConfig(dir string, flags *pflag.FlagSet) error {
	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var visitErr error
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "confirm-header":
			cfg.ConfirmHeader = f.Value.String()
		case "confirm-body":
			cfg.ConfirmBody = f.Value.String()
		case "confirm-text":
			cfg.ConfirmText = f.Value.String()
		case "cancel-text":
			cfg.CancelText = f.Value.String()
		case "fade-ms":
			ms, err := flags.GetInt("fade-ms")
			if err != nil || ms < 0 {
				visitErr = fmt.Errorf("invalid --fade-ms %q", f.Value.String())
				return
			}
			cfg.FadeMS = ms
		}
	})
	if visitErr != nil {
		return visitErr
	}

	if err := config.Save(dir, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
