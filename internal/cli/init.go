package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/edgewatch/internal/config"
	"github.com/rileyhilliard/edgewatch/internal/errors"
	"github.com/rileyhilliard/edgewatch/pkg/sshutil"
)

var (
	initHostFlag       string
	initForce          bool
	initNonInteractive bool
	initAskPass        bool
	initSkipVerify     bool
)

// initCmd creates a new .edgewatch.yaml configuration.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .edgewatch.yaml configuration",
	Long: `Initialize a new edgewatch configuration file.

Walks through device address, credentials, and connection verification,
then writes .edgewatch.yaml in the current directory.

Passwords can be stored as "env:VAR_NAME" references instead of plaintext;
the interactive flow offers both.

Examples:
  edgewatch init
  edgewatch init --host 192.168.1.1 --non-interactive --ask-pass
  edgewatch init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand()
	},
}

func init() {
	initCmd.Flags().StringVar(&initHostFlag, "host", "", "pre-specify the router address")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "no prompts; requires --host")
	initCmd.Flags().BoolVar(&initAskPass, "ask-pass", false, "read the password from the terminal without echo")
	initCmd.Flags().BoolVar(&initSkipVerify, "skip-verify", false, "write the config without testing the connection")
	rootCmd.AddCommand(initCmd)
}

func initCommand() error {
	configPath := configFlag
	if configPath == "" {
		configPath = config.ConfigFileName
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		if initNonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", configPath)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	cfg.Device.Host = initHostFlag

	if initNonInteractive {
		if cfg.Device.Host == "" {
			return errors.New(errors.ErrConfig,
				"Device host is required in non-interactive mode",
				"Provide --host or run interactively")
		}
	} else {
		if err := promptDevice(cfg); err != nil {
			return err
		}
	}

	if initAskPass {
		password, err := readPassword(fmt.Sprintf("Password for %s@%s: ", cfg.Device.Username, cfg.Device.Host))
		if err != nil {
			return err
		}
		cfg.Device.Password = password
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	if !initSkipVerify {
		fmt.Printf("Testing connection to %s...\n", cfg.Device.Host)
		err := sshutil.Validate(sshutil.Options{
			Host:            cfg.Device.Host,
			Port:            cfg.Device.Port,
			User:            cfg.Device.Username,
			Password:        cfg.Device.ResolvePassword(),
			InsecureHostKey: cfg.Device.InsecureHostKey,
		})
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Connection test failed, config not written",
				"Fix the connection details and retry, or pass --skip-verify")
		}
		fmt.Println("Connection OK.")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "Failed to encode config")
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't write %s", configPath),
			"Check directory permissions")
	}

	fmt.Printf("Wrote %s\n", configPath)
	return nil
}

// promptDevice collects device settings interactively.
func promptDevice(cfg *config.Config) error {
	var storeEnv bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Router address").
				Description("Hostname, IP, or ~/.ssh/config alias").
				Placeholder("192.168.1.1").
				Value(&cfg.Device.Host).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("router address is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Device name").
				Description("Friendly label for logs and published messages").
				Placeholder("edge-router").
				Value(&cfg.Device.Name),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("SSH username").
				Description("EdgeOS ships with 'ubnt'").
				Value(&cfg.Device.Username),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Read password from an environment variable?").
				Description("Keeps the password out of the config file").
				Value(&storeEnv),
		),
	)
	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}

	if storeEnv {
		var envVar string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Environment variable name").
					Placeholder("EDGEWATCH_PASSWORD").
					Value(&envVar).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("variable name is required")
						}
						return nil
					}),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input", "")
		}
		cfg.Device.Password = "env:" + envVar
		return nil
	}

	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("SSH password").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Device.Password),
		),
	)
	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input", "")
	}
	return nil
}

// readPassword reads a password from the controlling terminal without echo.
// Used by --ask-pass in scripts where the huh form can't run.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't read the password from the terminal",
			"Run from an interactive terminal, or store the password as env:VAR in the config")
	}
	return string(raw), nil
}
