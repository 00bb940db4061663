package k8s

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const VerbList = "list"

// APIResource is one kind served by the cluster, at its recommended version.
type APIResource struct {
	GroupVersion schema.GroupVersion
	Kind         string
	// Resource is the plural resource name used in request paths.
	Resource   string
	Namespaced bool
	Verbs      []string
}

// API returns the group/version string, "v1" for the core group.
func (r APIResource) API() string {
	return r.GroupVersion.String()
}

func (r APIResource) GVR() schema.GroupVersionResource {
	return r.GroupVersion.WithResource(r.Resource)
}

func (r APIResource) Supports(verb string) bool {
	return sets.New(r.Verbs...).Has(verb)
}

func (r APIResource) String() string {
	return fmt.Sprintf("%s %s", r.API(), r.Kind)
}

type Kube interface {
	Discover() ([]APIResource, error)
	List(ctx context.Context, resource APIResource) ([]unstructured.Unstructured, error)
}

var _ Kube = &ClientKube{}

// ClientKube talks to the API server through the discovery and dynamic clients.
type ClientKube struct {
	discovery discovery.DiscoveryInterface
	dynamic   dynamic.Interface
}

func NewClientKube(discoveryClient discovery.DiscoveryInterface, dynamicClient dynamic.Interface) *ClientKube {
	return &ClientKube{discovery: discoveryClient, dynamic: dynamicClient}
}

// NewDefaultKube connects with the ambient credentials: $KUBECONFIG, ~/.kube/config or the in-cluster config.
func NewDefaultKube() (*ClientKube, error) {
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{},
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster config: %w", err)
	}
	return NewKubeForConfig(config)
}

func NewKubeForConfig(config *rest.Config) (*ClientKube, error) {
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}
	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	slog.Debug("connected to cluster", "host", config.Host)
	return NewClientKube(discoveryClient, dynamicClient), nil
}

// Discover returns every kind of every group, each at its recommended version: the group's preferred
// version when it serves the kind, otherwise the first other version in server order that does.
func (k *ClientKube) Discover() ([]APIResource, error) {
	groups, err := k.discovery.ServerGroups()
	if err != nil {
		return nil, fmt.Errorf("failed to list api groups: %w", err)
	}

	var result []APIResource
	for _, group := range groups.Groups {
		versions := append([]metav1.GroupVersionForDiscovery{group.PreferredVersion}, group.Versions...)
		visited := sets.New[string]()
		kinds := sets.New[string]()

		for _, version := range versions {
			if version.GroupVersion == "" || visited.Has(version.GroupVersion) {
				continue
			}
			visited.Insert(version.GroupVersion)

			list, err := k.discovery.ServerResourcesForGroupVersion(version.GroupVersion)
			if err != nil {
				return nil, fmt.Errorf("failed to list resources of %s: %w", version.GroupVersion, err)
			}
			gv, err := schema.ParseGroupVersion(list.GroupVersion)
			if err != nil {
				return nil, fmt.Errorf("invalid group version %q: %w", list.GroupVersion, err)
			}

			for _, r := range list.APIResources {
				if isSubresource(r.Name) || kinds.Has(r.Kind) {
					continue
				}
				kinds.Insert(r.Kind)
				result = append(result, APIResource{
					GroupVersion: gv,
					Kind:         r.Kind,
					Resource:     r.Name,
					Namespaced:   r.Namespaced,
					Verbs:        r.Verbs,
				})
			}
		}
	}

	slog.Debug("discovered api resources", "groups", len(groups.Groups), "kinds", len(result))
	return result, nil
}

// List returns all objects of a resource across all namespaces in one unpaginated call.
func (k *ClientKube) List(ctx context.Context, resource APIResource) ([]unstructured.Unstructured, error) {
	slog.Debug("listing api resource", "api", resource.API(), "kind", resource.Kind)
	list, err := k.dynamic.Resource(resource.GVR()).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", resource, err)
	}
	return list.Items, nil
}

// isSubresource reports whether a resource name is a subresource like "pods/log".
func isSubresource(name string) bool {
	return strings.Contains(name, "/")
}

var _ Kube = cachingKube{}

// cachingKube remembers discovery results. Lists are never cached.
type cachingKube struct {
	downstream Kube
	cache      *cache.Cache
}

const discoveryCacheKey = "discovery"

func NewCachingKube(downstream Kube, defaultExpiration, cleanupInterval time.Duration) Kube {
	kube := cachingKube{
		downstream: downstream,
		cache:      cache.New(defaultExpiration, cleanupInterval),
	}
	return &kube
}

func (c cachingKube) Discover() ([]APIResource, error) {
	if res, found := c.cache.Get(discoveryCacheKey); found {
		slog.Debug("return cached discovery result")
		return res.([]APIResource), nil
	}

	res, err := c.downstream.Discover()
	if err != nil {
		return nil, err
	}
	c.cache.Set(discoveryCacheKey, res, cache.DefaultExpiration)
	return res, nil
}

func (c cachingKube) List(ctx context.Context, resource APIResource) ([]unstructured.Unstructured, error) {
	return c.downstream.List(ctx, resource)
}
