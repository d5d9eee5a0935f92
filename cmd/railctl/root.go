package main

import (
	"bufio"
	"io"

	"railctl/cmd/railctl/cli"
	"railctl/internal/api"
	"railctl/internal/config"
	"railctl/internal/console"
	"railctl/internal/log"
	"railctl/internal/resources"
	"railctl/internal/session"

	"github.com/spf13/cobra"
)

// app is the state shared by every command of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	apiURL  string
	yes     bool

	registry *resources.Registry
	sess     *session.State
	client   *api.Client
	in       io.Reader
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	if a.registry == nil {
		a.registry = resources.Default()
	}

	rootCmd := &cobra.Command{
		Use:   "railctl",
		Short: "Administrative console for the railway operations backend",
		Long: cli.Logo() + `
railctl browses, filters and edits railway records (staff, stations, routes,
trains, schedules, passengers and tickets), books tickets and runs read-only
SQL reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// One buffered reader so consecutive prompts do not lose input.
			if a.in == nil {
				a.in = bufio.NewReader(cmd.InOrStdin())
			}
			if a.cfg == nil {
				var err error
				if a.cfgFile != "" {
					a.cfg, err = config.LoadConfigFile(a.cfgFile)
				} else {
					a.cfg, err = config.LoadConfig()
				}
				if err != nil {
					return err
				}
			}
			if a.apiURL != "" {
				a.cfg.API.BaseURL = a.apiURL
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}

			log.SetDebug(a.cfg.Log.Debug)
			if a.cfg.Log.JSON {
				log.Configure(log.WithJSON())
			}
			cli.SetTheme(a.cfg)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/railctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.apiURL, "api", "", "backend base url (overrides api.base_url)")
	rootCmd.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, "answer yes to confirmation prompts")

	rootCmd.AddCommand(
		newResourcesCmd(a),
		newListCmd(a),
		newCountCmd(a),
		newNamesCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
		newConsoleCmd(a),
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newBookCmd(a),
		newTicketsCmd(a),
		newTrainsCmd(a),
		newSQLCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// session returns the process session, loading the persisted token once.
func (a *app) session() (*session.State, error) {
	if a.sess != nil {
		return a.sess, nil
	}
	var store session.Store = session.NewMemoryStore("")
	if a.cfg.Session.TokenFile != "" {
		store = session.NewFileStore(a.cfg.Session.TokenFile)
	}
	sess, err := session.New(store)
	if err != nil {
		return nil, err
	}
	a.sess = sess
	return sess, nil
}

func (a *app) apiClient() (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	sess, err := a.session()
	if err != nil {
		return nil, err
	}
	c, err := api.NewClient(a.cfg.API.BaseURL, sess,
		api.WithTimeout(a.cfg.API.Timeout),
		api.WithUserAgent(a.cfg.API.UserAgent),
	)
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// open looks a collection up and opens a console on it.
func (a *app) open(name string, opts ...console.Option) (resources.Descriptor, console.Console, error) {
	d, err := a.registry.Lookup(name)
	if err != nil {
		return resources.Descriptor{}, nil, err
	}
	c, err := a.apiClient()
	if err != nil {
		return resources.Descriptor{}, nil, err
	}
	env := a.registry.Env(c, a.cfg.Console.DependencyConcurrency, opts...)
	return d, d.Open(env), nil
}

// confirm asks before a mutation unless --yes was given.
func (a *app) confirm(cmd *cobra.Command, prompt string) bool {
	if a.yes {
		return true
	}
	return cli.Confirm(a.in, cmd.OutOrStdout(), prompt)
}
