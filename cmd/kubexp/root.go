package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/sttts/kubexp/internal/explain"
	"github.com/sttts/kubexp/internal/logging"
	"github.com/sttts/kubexp/internal/ui"
	"github.com/sttts/kubexp/pkg/appconfig"
	"github.com/sttts/kubexp/pkg/kubeconfig"
	crlog "sigs.k8s.io/controller-runtime/pkg/log"
)

// rootOptions holds the flag values. Only flags the user set override the
// config file.
type rootOptions struct {
	configPath string
	kubectl    string
	kubeconfig string
	context    string
	timeout    time.Duration
	recursive  bool
	apiVersion string
	logFile    string
	verbosity  int
}

// NewRootCmd builds the kubexp command tree.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "kubexp",
		Short: "Browse kubectl explain interactively",
		Long: `kubexp is a small terminal UI around "kubectl explain".

It starts in edit mode with the list of API resources in the output pane.
Type a resource or field path (for example pod.spec.containers) and press
Enter to explain it. Esc leaves edit mode, q then quits and i edits again.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Version = versionString()

	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "config file (default ~/.kubexp/config.yaml)")
	f.StringVar(&o.kubectl, "kubectl", "", "kubectl binary to run")
	f.StringVar(&o.kubeconfig, "kubeconfig", "", "kubeconfig file passed to kubectl")
	f.StringVar(&o.context, "context", "", "kubeconfig context passed to kubectl")
	f.DurationVar(&o.timeout, "timeout", 0, "timeout for each kubectl call, 0 means none")
	f.BoolVar(&o.recursive, "recursive", false, "explain all fields recursively")
	f.StringVar(&o.apiVersion, "api-version", "", "API version to explain, e.g. apps/v1")
	f.StringVar(&o.logFile, "log-file", "", "write logs to this file")
	f.IntVarP(&o.verbosity, "verbosity", "v", 0, "log verbosity")

	cmd.AddCommand(newVersionCmd(), newConfigCmd(o))
	return cmd
}

// load reads the config file and applies the flags that were set.
func (o *rootOptions) load(cmd *cobra.Command) (*appconfig.Config, error) {
	cfg, err := appconfig.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("kubectl") {
		cfg.Kubectl.Path = o.kubectl
	}
	if flags.Changed("kubeconfig") {
		cfg.Kubectl.Kubeconfig = o.kubeconfig
	}
	if flags.Changed("context") {
		cfg.Kubectl.Context = o.context
	}
	if flags.Changed("timeout") {
		cfg.Kubectl.Timeout.Duration = o.timeout
	}
	if flags.Changed("recursive") {
		cfg.Explain.Recursive = o.recursive
	}
	if flags.Changed("api-version") {
		cfg.Explain.APIVersion = o.apiVersion
	}
	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}
	if flags.Changed("verbosity") {
		cfg.Log.Verbosity = o.verbosity
	}
	if cfg.Kubectl.Path == "" {
		return nil, errors.New("--kubectl must not be empty")
	}
	return cfg, nil
}

func (o *rootOptions) path() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return appconfig.Path()
}

func run(ctx context.Context, cfg *appconfig.Config) error {
	logger, closeLog, err := logging.Setup(logging.Options{File: cfg.Log.File, Verbosity: cfg.Log.Verbosity})
	if err != nil {
		return err
	}
	defer closeLog()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = crlog.IntoContext(ctx, logger)

	kctx, err := kubeconfig.Resolve(cfg.Kubectl.Kubeconfig, cfg.Kubectl.Context)
	if err != nil {
		logger.Info("Could not resolve kubeconfig context", "error", err.Error())
	} else {
		logger.V(1).Info("Resolved kubeconfig context", "context", kctx.Name, "server", kctx.Server)
	}

	client := explain.NewClient(explain.ExecRunner{}, explain.Options{
		Kubectl:    cfg.Kubectl.Path,
		Kubeconfig: cfg.Kubectl.Kubeconfig,
		Context:    cfg.Kubectl.Context,
		Timeout:    cfg.Kubectl.Timeout.Duration,
		Recursive:  cfg.Explain.Recursive,
		APIVersion: cfg.Explain.APIVersion,
	})
	logger.Info("Starting", "version", version, "kubectl", cfg.Kubectl.Path)
	return ui.Run(ctx, ui.Options{
		Explainer:    client,
		Context:      kctx,
		HistoryLimit: cfg.History.Limit,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kubexp version %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Date: %s\n", date)
		},
	}
}

func versionString() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := o.path()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file %s already exists", path)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := appconfig.Save(path, appconfig.Default()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "view",
		Short: "Print the effective config, flags included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}
			data, err := appconfig.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return cmd
}
