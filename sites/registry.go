package sites

// Registry holds the available sites in selection order.
type Registry struct {
	sites []Site
}

// NewRegistry creates a registry that tries the given sites in order.
func NewRegistry(sites ...Site) *Registry {
	return &Registry{sites: append([]Site(nil), sites...)}
}

// Default returns a registry with every supported site. More specific
// domains are registered before generic ones.
func Default(opts Options) *Registry {
	return NewRegistry(
		NewArchiveOfOurOwn(opts),
		NewHPFanficArchive(opts),
		NewFanfiction(opts),
	)
}

// Register appends a site after the ones already registered.
func (r *Registry) Register(site Site) {
	r.sites = append(r.sites, site)
}

// Select returns the first site that can handle the URL, or ErrNoSite.
func (r *Registry) Select(url string) (Site, error) {
	for _, site := range r.sites {
		if site.CanHandle(url) {
			return site, nil
		}
	}
	return nil, ErrNoSite
}

// Sites returns the registered sites in selection order.
func (r *Registry) Sites() []Site {
	return append([]Site(nil), r.sites...)
}
