package brand

// Site describes the trade portal's login surface.
type Site struct {
	Origin        string
	LoginPageURL  string
	LoginPostURL  string
	FormKeyField  string
	IdentityField string
	SecretField   string
	ExtraFields   map[string]string
	SessionCookie string

	// Browser login
	IdentitySelector string
	SecretSelector   string
	SubmitSelector   string
	AuthMarker       string
}

func DefaultSite() Site {
	return Site{
		Origin:        BaseOrigin,
		LoginPageURL:  BaseOrigin + "/customer/account/login/",
		LoginPostURL:  BaseOrigin + "/customer/account/loginPost/",
		FormKeyField:  "form_key",
		IdentityField: "login[username]",
		SecretField:   "login[password]",
		ExtraFields:   map[string]string{"send": ""},
		SessionCookie: "PHPSESSID",

		IdentitySelector: `input[name="login[username]"]`,
		SecretSelector:   `input[name="login[password]"]`,
		SubmitSelector:   `button[type="submit"], button.login`,
		AuthMarker:       `a[href*="account"], .customer-welcome`,
	}
}
