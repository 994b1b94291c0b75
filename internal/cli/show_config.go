package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// effectiveConfig is the resolved configuration after flags, config.yaml,
// environment and defaults are applied.
type effectiveConfig struct {
	ConfigDir    string `json:"config_dir" yaml:"config_dir"`
	types.Config `yaml:",inline"`
	DBPath       string `json:"db_path" yaml:"db_path"`
	Debug        bool   `json:"debug" yaml:"debug"`
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.libraryConfig()
			if err != nil {
				return sysError(err)
			}
			eff := effectiveConfig{
				ConfigDir: opts.resolvedConfigDir,
				Config:    cfg,
				DBPath:    cfg.DBPath(),
				Debug:     opts.debug || opts.config.GetBool(cfgKeyDebug),
			}
			if opts.jsonMode {
				return printJSON(cmd.OutOrStdout(), eff)
			}
			data, err := yaml.Marshal(&eff)
			if err != nil {
				return sysError(fmt.Errorf("marshal config: %w", err))
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
