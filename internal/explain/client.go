package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	crlog "sigs.k8s.io/controller-runtime/pkg/log"
)

// ErrNotText is returned when kubectl wrote something that is not UTF-8.
var ErrNotText = errors.New("output is not valid UTF-8 text")

// Options configure how kubectl is invoked. The zero value except for
// Kubectl yields the plain `kubectl explain <path>` call.
type Options struct {
	Kubectl    string
	Kubeconfig string
	Context    string
	// Timeout bounds each invocation; zero means no limit.
	Timeout    time.Duration
	Recursive  bool
	APIVersion string
}

// Client turns kubectl invocations into display text.
type Client struct {
	runner Runner
	opts   Options
}

func NewClient(r Runner, opts Options) *Client {
	if opts.Kubectl == "" {
		opts.Kubectl = "kubectl"
	}
	return &Client{runner: r, opts: opts}
}

// APIResourcesArgs returns the arguments of the resource listing call.
func (c *Client) APIResourcesArgs() []string {
	return append(c.globalArgs(), "api-resources", "-o", "name")
}

// ExplainArgs returns the arguments used to explain path. path is passed as
// a single argument even when empty or containing spaces.
func (c *Client) ExplainArgs(path string) []string {
	args := append(c.globalArgs(), "explain")
	if c.opts.Recursive {
		args = append(args, "--recursive")
	}
	if c.opts.APIVersion != "" {
		args = append(args, "--api-version="+c.opts.APIVersion)
	}
	return append(args, path)
}

func (c *Client) globalArgs() []string {
	var args []string
	if c.opts.Kubeconfig != "" {
		args = append(args, "--kubeconfig="+c.opts.Kubeconfig)
	}
	if c.opts.Context != "" {
		args = append(args, "--context="+c.opts.Context)
	}
	return args
}

// APIResources lists the resource names known to the cluster. Failures come
// back as text, never as an error.
func (c *Client) APIResources(ctx context.Context) string {
	return c.run(ctx, c.APIResourcesArgs())
}

// Explain returns the schema documentation of path, or a formatted error.
func (c *Client) Explain(ctx context.Context, path string) string {
	return c.run(ctx, c.ExplainArgs(path))
}

func (c *Client) run(ctx context.Context, args []string) string {
	text, err := c.Text(ctx, args)
	if err != nil {
		return err.Error()
	}
	return text
}

// Text runs kubectl with args and returns its stdout. The returned error is
// prefixed with the command line.
func (c *Client) Text(ctx context.Context, args []string) (string, error) {
	logger := crlog.FromContext(ctx).WithValues("kubectl", c.opts.Kubectl, "args", args)
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.runner.Run(ctx, c.opts.Kubectl, args...)
	if err != nil {
		logger.Error(err, "kubectl invocation failed")
		return "", fmt.Errorf("%s: %w", c.commandLine(args), err)
	}
	logger.V(1).Info("kubectl finished", "exitCode", out.ExitCode, "duration", time.Since(start), "stderr", strings.TrimSpace(string(out.Stderr)))
	if !utf8.Valid(out.Stdout) {
		logger.Error(ErrNotText, "cannot decode kubectl output", "bytes", len(out.Stdout))
		return "", fmt.Errorf("%s: %w", c.commandLine(args), ErrNotText)
	}
	return string(out.Stdout), nil
}

func (c *Client) commandLine(args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, c.opts.Kubectl)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
