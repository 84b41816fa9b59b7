package affipay

// Environment selects which gateway deployment the client talks to.
type Environment string

const (
	EnvSandbox    Environment = "sandbox"
	EnvProduction Environment = "production"
)

// Sandbox defaults published by the gateway. Production URLs are assigned per
// merchant and must be configured; unset overrides fall back to sandbox, the
// same behaviour the gateway's reference integration has.
const (
	defaultAuthURL      = "https://sandbox-tokener.blumonpay.net"
	defaultEcommerceURL = "https://sandbox-ecommerce.blumonpay.net"
)

// Endpoints holds the resolved base URLs for the two gateway surfaces.
type Endpoints struct {
	AuthURL      string
	EcommerceURL string
}

// URLOverrides carries the per-environment base URL overrides from merchant
// configuration.
type URLOverrides struct {
	ProductionAuth      string
	ProductionEcommerce string
	SandboxAuth         string
	SandboxEcommerce    string
}

// ResolveEndpoints picks the base URLs for env, falling back to the sandbox
// defaults for anything unset.
func ResolveEndpoints(env Environment, o URLOverrides) Endpoints {
	ep := Endpoints{
		AuthURL:      defaultAuthURL,
		EcommerceURL: defaultEcommerceURL,
	}
	auth, ecommerce := o.SandboxAuth, o.SandboxEcommerce
	if env == EnvProduction {
		auth, ecommerce = o.ProductionAuth, o.ProductionEcommerce
	}
	if auth != "" {
		ep.AuthURL = auth
	}
	if ecommerce != "" {
		ep.EcommerceURL = ecommerce
	}
	return ep
}
