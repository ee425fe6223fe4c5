package kubeconfig

import (
	"fmt"

	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/clientcmd/api"
)

// Context is the kubeconfig context kubectl will talk to.
type Context struct {
	Name      string
	Cluster   string
	Server    string
	Namespace string
	User      string
	// Sources lists the kubeconfig files that were merged, in precedence order.
	Sources []string
}

// Title is the short label shown in the UI.
func (c *Context) Title() string {
	if c == nil || c.Name == "" {
		return ""
	}
	if c.Namespace == "" || c.Namespace == "default" {
		return c.Name
	}
	return c.Name + "/" + c.Namespace
}

// Resolve loads kubeconfig the way kubectl does (explicit path, then
// $KUBECONFIG, then ~/.kube/config) and returns the context selected by
// contextName, or the current context when contextName is empty.
func Resolve(explicitPath, contextName string) (*Context, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = explicitPath
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	cc := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	raw, err := cc.RawConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	name := contextName
	if name == "" {
		name = raw.CurrentContext
	}
	if name == "" {
		return nil, fmt.Errorf("no current context set")
	}
	return fromConfig(&raw, name, cc.ConfigAccess().GetLoadingPrecedence())
}

func fromConfig(cfg *api.Config, name string, sources []string) (*Context, error) {
	kctx, ok := cfg.Contexts[name]
	if !ok || kctx == nil {
		return nil, fmt.Errorf("context %q not found", name)
	}
	namespace := kctx.Namespace
	if namespace == "" {
		namespace = "default"
	}
	c := &Context{
		Name:      name,
		Cluster:   kctx.Cluster,
		Namespace: namespace,
		User:      kctx.AuthInfo,
		Sources:   sources,
	}
	if cl, ok := cfg.Clusters[kctx.Cluster]; ok && cl != nil {
		c.Server = cl.Server
	}
	return c, nil
}
