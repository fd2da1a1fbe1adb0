package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamal-hamza/hx-cli/pkg/config"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the hx configuration",
	Long: `Show or change settings in config.yaml.

Keys use dotted paths into the file, for example "default_sort" or
"preview.gain". Values are parsed as YAML, so lists are written as
"[.hdr, .exr]".

Examples:
  hx config
  hx config get preview.gain
  hx config set default_sort date
  hx config set import_extensions "[.hdr, .exr]"
  hx config edit`,
	Annotations: map[string]string{annotationNoCatalog: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd, args)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every setting",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return config.DefaultConfig().Keys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := appConfig.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting and save the file",
	Args:  cobra.MinimumNArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return config.DefaultConfig().Keys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(appConfigPath)
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config.yaml in $EDITOR",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := appConfigPath

		// Ensure it exists
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := appConfig.Save(path); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
		}

		fmt.Println(ui.FormatInfo("Opening config: " + path))

		c := exec.Command(preferredEditor(), path)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return err
		}

		// Surface syntax errors now rather than on the next command
		if _, err := config.Load(path); err != nil {
			fmt.Println(ui.FormatWarning(err.Error()))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	fmt.Println(ui.FormatTitle("Configuration"))
	fmt.Println(ui.FormatMuted(appConfigPath))
	fmt.Println()
	for _, k := range appConfig.Keys() {
		v, err := appConfig.Get(k)
		if err != nil {
			return err
		}
		if v == `""` {
			v = ui.StyleMuted.Render("(default)")
		}
		fmt.Println(ui.RenderKeyValue(k, v))
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := strings.Join(args[1:], " ")

	if err := appConfig.Set(key, value); err != nil {
		fmt.Println(ui.FormatError("Failed to set " + key))
		return err
	}
	if err := appConfig.Save(appConfigPath); err != nil {
		fmt.Println(ui.FormatError("Failed to save config"))
		return err
	}

	stored, _ := appConfig.Get(key)
	fmt.Println(ui.FormatSuccess(fmt.Sprintf("%s = %s", key, stored)))
	if !sameYAML(stored, value) {
		fmt.Println(ui.FormatWarning(fmt.Sprintf("%q is not valid for %s, the default was kept", value, key)))
	}
	return nil
}

// sameYAML reports whether two YAML scalars or lists decode to the same value
func sameYAML(a, b string) bool {
	var va, vb any
	if yaml.Unmarshal([]byte(a), &va) != nil || yaml.Unmarshal([]byte(b), &vb) != nil {
		return a == b
	}
	return fmt.Sprint(va) == fmt.Sprint(vb)
}
